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

package logtail

import (
	"context"
	"sync"
)

// MockTailer is a mock implementation of the Tailer interface. Lines are
// injected with InjectLine and show up both in RecentLines and at the
// consumer.
type MockTailer struct {
	// Lines is the window returned by RecentLines.
	Lines []string
	// Consumer receives injected lines, mirroring the real fan-out.
	Consumer LineConsumer
	// StartError, when set, is returned by Start.
	StartError error
	// Started and StopCalls track lifecycle usage.
	Started   bool
	StopCalls int

	mutex sync.Mutex
}

// NewMockTailer creates a new MockTailer.
func NewMockTailer() *MockTailer {
	return &MockTailer{}
}

// Start marks the tailer as started.
func (m *MockTailer) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.StartError != nil {
		return m.StartError
	}

	m.Started = true

	return nil
}

// InjectLine appends a line to the window and feeds the consumer.
func (m *MockTailer) InjectLine(line string) {
	m.mutex.Lock()
	m.Lines = append(m.Lines, line)
	consumer := m.Consumer
	m.mutex.Unlock()

	if consumer != nil {
		consumer(line)
	}
}

// RecentLines returns a copy of the injected lines.
func (m *MockTailer) RecentLines() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lines := make([]string, len(m.Lines))
	copy(lines, m.Lines)

	return lines
}

// Stop counts the stop call.
func (m *MockTailer) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Started = false
	m.StopCalls++
}
