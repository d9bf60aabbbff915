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

package sysmetrics

import (
	"context"
	"sync"

	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// MockCollector is a mock implementation of the Collector interface.
type MockCollector struct {
	// Metrics is returned by every Snapshot call.
	Metrics models.SystemMetrics
	// SnapshotCalls counts Snapshot invocations.
	SnapshotCalls int

	mutex sync.Mutex
}

// NewMockCollector creates a new MockCollector.
func NewMockCollector() *MockCollector {
	return &MockCollector{}
}

// SetMetrics configures the snapshot returned by the mock.
func (m *MockCollector) SetMetrics(metrics models.SystemMetrics) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Metrics = metrics
}

// Snapshot returns the configured metrics.
func (m *MockCollector) Snapshot(_ context.Context) models.SystemMetrics {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.SnapshotCalls++

	return m.Metrics
}
