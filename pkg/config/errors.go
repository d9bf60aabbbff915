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

package config

import "errors"

var (
	// ErrNoServers indicates an empty server list.
	ErrNoServers = errors.New("config declares no servers")
	// ErrEmptyServerID indicates a descriptor without an id.
	ErrEmptyServerID = errors.New("server descriptor has empty id")
	// ErrDuplicateServerID indicates two descriptors share an id.
	ErrDuplicateServerID = errors.New("duplicate server id")
	// ErrInvalidRconPort indicates console credentials without a valid port.
	ErrInvalidRconPort = errors.New("rcon password set but port is invalid")
	// ErrMissingUnit indicates a descriptor without a supervisor unit name.
	ErrMissingUnit = errors.New("server descriptor has no systemd unit")
	// ErrNoFallbackServer indicates no fallback server id is configured.
	ErrNoFallbackServer = errors.New("no fallback server configured")
	// ErrUnknownFallbackServer indicates the fallback id names no server.
	ErrUnknownFallbackServer = errors.New("fallback server id not in server list")
	// ErrFallbackWithoutConsole indicates the fallback server cannot
	// execute console commands.
	ErrFallbackWithoutConsole = errors.New("fallback server has no console credentials")
)
