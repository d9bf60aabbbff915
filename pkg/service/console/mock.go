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
	"sync"
)

// ExecutedCommand records one Execute call against the mock.
type ExecutedCommand struct {
	ServerID string
	Command  string
}

// MockConsoleService is a mock implementation of the console Service
// interface.
type MockConsoleService struct {
	// Responses maps server id to the response returned by Execute.
	Responses map[string]string
	// ExecuteError, when set, is returned by every Execute call.
	ExecuteError error
	// ConnectError, when set, is returned by every Connect call.
	ConnectError error
	// ExecutedCommands records all Execute calls in order.
	ExecutedCommands []ExecutedCommand
	// ConnectCalls and DisconnectCalls track pool lifecycle usage per
	// server id.
	ConnectCalls       map[string]int
	DisconnectCalls    map[string]int
	DisconnectAllCalls int

	mutex sync.Mutex
}

// NewMockConsoleService creates a new MockConsoleService.
func NewMockConsoleService() *MockConsoleService {
	return &MockConsoleService{
		Responses:       make(map[string]string),
		ConnectCalls:    make(map[string]int),
		DisconnectCalls: make(map[string]int),
	}
}

// SetResponse configures the Execute response for a server.
func (m *MockConsoleService) SetResponse(serverID string, response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Responses[serverID] = response
}

// Execute records the call and returns the configured response.
func (m *MockConsoleService) Execute(ctx context.Context, serverID string, command string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.ExecutedCommands = append(m.ExecutedCommands, ExecutedCommand{ServerID: serverID, Command: command})

	if m.ExecuteError != nil {
		return "", m.ExecuteError
	}

	return m.Responses[serverID], nil
}

// Connect records the warm-up call.
func (m *MockConsoleService) Connect(ctx context.Context, serverID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.ConnectCalls[serverID]++

	return m.ConnectError
}

// Disconnect records the eviction call.
func (m *MockConsoleService) Disconnect(ctx context.Context, serverID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.DisconnectCalls[serverID]++

	return nil
}

// DisconnectAll records the shutdown call.
func (m *MockConsoleService) DisconnectAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.DisconnectAllCalls++
}
