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

// Package earlywarning watches the live log stream and periodic host
// snapshots of online servers for conditions that tend to precede crashes.
// Warnings are advisory: they never produce a crash report on their own,
// they only give the operator (and the crash report that may follow) a
// trail of what was already going wrong.
package earlywarning

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// errorWindow is the rolling per-server error counter. The window resets
// when it elapses instead of sliding, which is cheap and good enough for a
// ">N errors per hour" signal.
type errorWindow struct {
	start time.Time
	count int
	// fired ensures a window emits the frequent_errors warning once, no
	// matter how far past the threshold the count climbs.
	fired bool
}

// Analyzer turns log lines and host snapshots into early warnings.
type Analyzer struct {
	windows map[string]*errorWindow
	// cooldowns suppresses repeat warnings of the same kind for the same
	// server; entries expire on their own.
	cooldowns *expiremap.ExpireMap[string, time.Time]
	logger    *zap.SugaredLogger
	mutex     sync.Mutex
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		windows:   make(map[string]*errorWindow),
		cooldowns: expiremap.NewEx[string, time.Time](constants.WarningCooldown, constants.WarningCooldown),
		logger:    logger.For(logger.ComponentEarlyWarning),
	}
}

// Observe feeds one log line of an online server into the analyzer. It
// returns the warnings the line triggered, usually none.
func (a *Analyzer) Observe(serverID string, line string) []models.EarlyWarning {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var warnings []models.EarlyWarning

	for _, rule := range phraseRules {
		if !rule.pattern.MatchString(line) {
			continue
		}

		if warning := a.emit(serverID, rule.kind, rule.severity, rule.message, nil); warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	if errorLinePattern.MatchString(line) {
		if warning := a.countError(serverID); warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return warnings
}

// ObserveMetrics evaluates a host snapshot against the resource
// thresholds. The snapshot is attached to any warning it triggers.
func (a *Analyzer) ObserveMetrics(serverID string, snapshot models.SystemMetrics) []models.EarlyWarning {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	var warnings []models.EarlyWarning

	if snapshot.MemoryUsedPercent >= constants.MemoryHighPercent {
		message := fmt.Sprintf("host memory usage at %.1f%%", snapshot.MemoryUsedPercent)
		if warning := a.emit(serverID, models.WarningMemoryHigh, models.SeverityHigh, message, &snapshot); warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	if snapshot.CPUPercent >= constants.CPUHighPercent {
		message := fmt.Sprintf("host CPU usage at %.1f%%", snapshot.CPUPercent)
		if warning := a.emit(serverID, models.WarningCPUHigh, models.SeverityModerate, message, &snapshot); warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	if snapshot.DiskUsedPercent > 0 && 100-snapshot.DiskUsedPercent <= constants.DiskLowFreePercent {
		message := fmt.Sprintf("host disk only %.1f%% free", 100-snapshot.DiskUsedPercent)
		if warning := a.emit(serverID, models.WarningDiskLow, models.SeverityHigh, message, &snapshot); warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return warnings
}

// Reset drops the rolling error window of a server. Called when a server
// leaves or re-enters online so a fresh run starts with a clean slate.
func (a *Analyzer) Reset(serverID string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	delete(a.windows, serverID)
}

// countError advances the rolling error window and emits the
// frequent_errors warning exactly once per window when the count crosses
// the threshold.
func (a *Analyzer) countError(serverID string) *models.EarlyWarning {
	now := time.Now()

	window, ok := a.windows[serverID]
	if !ok || now.Sub(window.start) > constants.ErrorRateWindow {
		window = &errorWindow{start: now}
		a.windows[serverID] = window
	}

	window.count++

	if window.fired || window.count <= constants.ErrorRateThreshold {
		return nil
	}

	window.fired = true

	message := fmt.Sprintf("more than %d error lines within %s", constants.ErrorRateThreshold, constants.ErrorRateWindow)

	return a.emit(serverID, models.WarningFrequentErrors, models.SeverityModerate, message, nil)
}

// emit creates a warning unless the same kind is still in cooldown for
// this server.
func (a *Analyzer) emit(serverID string, kind models.WarningKind, severity models.Severity, message string, snapshot *models.SystemMetrics) *models.EarlyWarning {
	key := serverID + "/" + string(kind)

	if _, inCooldown := a.cooldowns.Load(key); inCooldown {
		return nil
	}

	now := time.Now()
	a.cooldowns.Set(key, now)

	warning := &models.EarlyWarning{
		ID:        uuid.NewString(),
		ServerID:  serverID,
		Timestamp: now.UTC(),
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		Metrics:   snapshot,
	}

	a.logger.Infof("Early warning for server %s: %s (%s)", serverID, message, kind)
	metrics.IncEarlyWarning(serverID, string(kind))

	return warning
}
