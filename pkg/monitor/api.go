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

package monitor

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/tiendc/go-deepcopy"

	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// StatusProvider answers lifecycle status queries. The tracker implements
// it; tests use stubs.
type StatusProvider interface {
	Status(serverID string) models.ServerStatus
	Statuses() map[string]models.ServerStatus
}

// WithStatusProvider sets the lifecycle status source.
func (m *Monitor) WithStatusProvider(provider StatusProvider) *Monitor {
	m.statusProvider = provider

	return m
}

// ExecuteCommand runs an admin command against a server's console,
// including the network-wide command routing of the console service.
func (m *Monitor) ExecuteCommand(ctx context.Context, serverID string, command string) (string, error) {
	return m.consoleService.Execute(ctx, serverID, command)
}

// GetStatus returns the current lifecycle status of a server. Unknown
// server ids report offline.
func (m *Monitor) GetStatus(serverID string) models.ServerStatus {
	if m.statusProvider == nil {
		return models.StatusOffline
	}

	return m.statusProvider.Status(serverID)
}

// GetRecentCrashReports returns crash reports newest first, optionally
// filtered by server id (empty id means all servers) and bounded by limit
// (limit <= 0 means no bound). The returned reports are deep copies.
func (m *Monitor) GetRecentCrashReports(serverID string, limit int) []models.CrashReport {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	var reports []models.CrashReport

	for i := len(m.crashReports) - 1; i >= 0; i-- {
		if serverID != "" && m.crashReports[i].ServerID != serverID {
			continue
		}

		var report models.CrashReport
		if err := deepcopy.Copy(&report, &m.crashReports[i]); err != nil {
			m.logger.Errorf("Failed to copy crash report %s: %v", m.crashReports[i].ID, err)

			continue
		}

		reports = append(reports, report)

		if limit > 0 && len(reports) == limit {
			break
		}
	}

	return reports
}

// GetEarlyWarnings returns early warnings newest first, with the same
// filter and limit semantics as GetRecentCrashReports.
func (m *Monitor) GetEarlyWarnings(serverID string, limit int) []models.EarlyWarning {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	var warnings []models.EarlyWarning

	for i := len(m.warnings) - 1; i >= 0; i-- {
		if serverID != "" && m.warnings[i].ServerID != serverID {
			continue
		}

		var warning models.EarlyWarning
		if err := deepcopy.Copy(&warning, &m.warnings[i]); err != nil {
			m.logger.Errorf("Failed to copy early warning %s: %v", m.warnings[i].ID, err)

			continue
		}

		warnings = append(warnings, warning)

		if limit > 0 && len(warnings) == limit {
			break
		}
	}

	return warnings
}

// ClearCrashReports drops the stored reports of a server (all servers for
// an empty id) and returns how many were removed.
func (m *Monitor) ClearCrashReports(serverID string) int {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	if serverID == "" {
		removed := len(m.crashReports)
		m.crashReports = nil

		return removed
	}

	kept := m.crashReports[:0]
	removed := 0

	for _, report := range m.crashReports {
		if report.ServerID == serverID {
			removed++

			continue
		}

		kept = append(kept, report)
	}

	m.crashReports = kept

	return removed
}

// ClearEarlyWarnings drops the stored warnings of a server (all servers
// for an empty id) and returns how many were removed.
func (m *Monitor) ClearEarlyWarnings(serverID string) int {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	if serverID == "" {
		removed := len(m.warnings)
		m.warnings = nil

		return removed
	}

	kept := m.warnings[:0]
	removed := 0

	for _, warning := range m.warnings {
		if warning.ServerID == serverID {
			removed++

			continue
		}

		kept = append(kept, warning)
	}

	m.warnings = kept

	return removed
}

// Snapshot is the export document handed to the outer web layer.
type Snapshot struct {
	GeneratedAt   time.Time                      `json:"generatedAt"`
	Statuses      map[string]models.ServerStatus `json:"statuses"`
	CrashReports  []models.CrashReport           `json:"crashReports"`
	EarlyWarnings []models.EarlyWarning          `json:"earlyWarnings"`
}

// ExportSnapshot marshals the current fleet view.
func (m *Monitor) ExportSnapshot() ([]byte, error) {
	snapshot := Snapshot{
		GeneratedAt:   time.Now().UTC(),
		CrashReports:  m.GetRecentCrashReports("", 0),
		EarlyWarnings: m.GetEarlyWarnings("", 0),
	}

	if m.statusProvider != nil {
		snapshot.Statuses = m.statusProvider.Statuses()
	}

	return json.Marshal(snapshot)
}
