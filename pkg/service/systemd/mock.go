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

package systemd

import (
	"context"
	"sync"
)

// MockService is a mock implementation of the systemd Service interface.
// Per-unit results are configured through SetStatus; errors through
// StatusError.
type MockService struct {
	// Statuses maps unit name to the ServiceInfo returned by Status.
	Statuses map[string]ServiceInfo
	// StatusError, when set, is returned by every Status call.
	StatusError error
	// StatusCalls counts Status invocations per unit.
	StatusCalls map[string]int

	mutex sync.Mutex
}

// NewMockService creates a new MockService.
func NewMockService() *MockService {
	return &MockService{
		Statuses:    make(map[string]ServiceInfo),
		StatusCalls: make(map[string]int),
	}
}

// SetStatus configures the result for a unit.
func (m *MockService) SetStatus(unit string, info ServiceInfo) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Statuses[unit] = info
}

// Status gets the configured status of the unit.
func (m *MockService) Status(ctx context.Context, unit string) (ServiceInfo, error) {
	if ctx.Err() != nil {
		return ServiceInfo{}, ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.StatusCalls[unit]++

	if m.StatusError != nil {
		return ServiceInfo{}, m.StatusError
	}

	info, ok := m.Statuses[unit]
	if !ok {
		return ServiceInfo{}, ErrUnitNotFound
	}

	return info, nil
}

// UnitExists checks whether a status was configured for the unit.
func (m *MockService) UnitExists(ctx context.Context, unit string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.Statuses[unit]

	return ok, nil
}
