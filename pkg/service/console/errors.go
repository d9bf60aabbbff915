// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import "errors"

var (
	// ErrUnknownServer indicates a server id absent from the fleet
	// configuration.
	ErrUnknownServer = errors.New("unknown server id")
	// ErrUnsupportedProtocol indicates a server without console
	// credentials. No connection is ever attempted for such servers.
	ErrUnsupportedProtocol = errors.New("server has no console credentials")
	// ErrConnectionFailed indicates the console could not be reached or
	// the transport broke mid-command.
	ErrConnectionFailed = errors.New("console connection failed")
	// ErrCommandTimeout indicates a command exceeded the execute deadline.
	// The handle is evicted, timeouts are connection-class failures.
	ErrCommandTimeout = errors.New("console command timed out")
	// ErrProtocolError indicates the remote end rejected a command over a
	// live connection. The handle survives.
	ErrProtocolError = errors.New("console protocol error")
)
