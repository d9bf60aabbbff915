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

import (
	"context"

	"github.com/gorcon/rcon"

	"github.com/netherwatch/netherwatch-core/pkg/constants"
)

// Conn is one live console connection. The concrete transport is the
// Source RCON protocol; tests substitute fakes.
type Conn interface {
	// Execute sends a command and returns the remote response.
	Execute(command string) (string, error)
	// Close terminates the connection.
	Close() error
}

// Dialer establishes console connections.
type Dialer interface {
	Dial(ctx context.Context, address string, password string) (Conn, error)
}

// DefaultDialer is the default Dialer implementation backed by gorcon.
type DefaultDialer struct{}

// NewDefaultDialer creates a new default dialer.
func NewDefaultDialer() *DefaultDialer {
	return &DefaultDialer{}
}

// Dial connects and authenticates against a console endpoint. Dial and
// per-command I/O deadlines are hard-wired to the pool's timeout budget.
func (d *DefaultDialer) Dial(ctx context.Context, address string, password string) (Conn, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return rcon.Dial(address, password,
		rcon.SetDialTimeout(constants.ConsoleDialTimeout),
		rcon.SetDeadline(constants.ConsoleExecuteTimeout))
}
