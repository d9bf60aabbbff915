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

// Package monitor is the hub of the fleet core. It subscribes to lifecycle
// transitions, manages per-server log tailers, turns abnormal shutdowns
// into crash reports and exposes the consumer API the outer layers call.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/classifier"
	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/earlywarning"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/models"
	"github.com/netherwatch/netherwatch-core/pkg/service/console"
	"github.com/netherwatch/netherwatch-core/pkg/service/filesystem"
	"github.com/netherwatch/netherwatch-core/pkg/service/logtail"
	"github.com/netherwatch/netherwatch-core/pkg/sysmetrics"
)

// TailerFactory creates the tailer for one server's log file. Swapped for
// a mock factory in tests.
type TailerFactory func(serverID string, path string, consumer logtail.LineConsumer) logtail.Tailer

// Monitor owns the crash and warning histories and reacts to lifecycle
// transitions.
type Monitor struct {
	cfg *config.FleetConfig

	consoleService console.Service
	analyzer       *earlywarning.Analyzer
	collector      sysmetrics.Collector
	tailerFactory  TailerFactory
	statusProvider StatusProvider
	fsService      filesystem.Service

	// tailers holds the running tailer per online server.
	tailers     map[string]logtail.Tailer
	tailerMutex sync.Mutex

	// crashReports and warnings are bounded FIFO histories, oldest first.
	crashReports []models.CrashReport
	warnings     []models.EarlyWarning
	historyMutex sync.Mutex

	// crashCooldowns marks servers that recently produced a crash report.
	// A marker with a zero timestamp counts as cleared; entries expire on
	// their own after the cooldown window.
	crashCooldowns *expiremap.ExpireMap[string, time.Time]

	logger *zap.SugaredLogger
}

// NewMonitor creates a monitor for the fleet.
func NewMonitor(cfg *config.FleetConfig) *Monitor {
	return &Monitor{
		cfg:            cfg,
		consoleService: console.NewDefaultConsoleService(cfg),
		analyzer:       earlywarning.NewAnalyzer(),
		collector:      sysmetrics.NewDefaultCollector(),
		tailerFactory: func(serverID string, path string, consumer logtail.LineConsumer) logtail.Tailer {
			return logtail.NewDefaultTailer(serverID, path, consumer)
		},
		fsService:      filesystem.NewDefaultService(),
		tailers:        make(map[string]logtail.Tailer),
		crashCooldowns: expiremap.NewEx[string, time.Time](constants.CrashCooldown, constants.CrashCooldown),
		logger:         logger.For(logger.ComponentMonitor),
	}
}

// WithConsoleService sets a custom console service.
func (m *Monitor) WithConsoleService(service console.Service) *Monitor {
	m.consoleService = service

	return m
}

// WithCollector sets a custom system metrics collector.
func (m *Monitor) WithCollector(collector sysmetrics.Collector) *Monitor {
	m.collector = collector

	return m
}

// WithTailerFactory sets a custom tailer factory.
func (m *Monitor) WithTailerFactory(factory TailerFactory) *Monitor {
	m.tailerFactory = factory

	return m
}

// WithFileSystemService sets a custom filesystem service.
func (m *Monitor) WithFileSystemService(fsService filesystem.Service) *Monitor {
	m.fsService = fsService

	return m
}

// HandleTransition implements the tracker Subscriber interface.
func (m *Monitor) HandleTransition(ctx context.Context, event models.TransitionEvent) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperationTime(metrics.ComponentMonitor, "handle_transition", time.Since(start))
	}()

	if event.To == models.StatusOnline {
		m.onOnline(ctx, event.ServerID)

		return
	}

	if event.From == models.StatusOnline {
		m.onLeaveOnline(ctx, event)
	}
}

// onOnline prepares a server that just came up: warm console connection,
// fresh analyzer window, fresh tailer, cleared crash cooldown.
func (m *Monitor) onOnline(ctx context.Context, serverID string) {
	desc, ok := m.cfg.Server(serverID)
	if !ok {
		return
	}

	m.analyzer.Reset(serverID)
	m.crashCooldowns.Set(serverID, time.Time{})

	if desc.HasConsole() {
		if err := m.consoleService.Connect(ctx, serverID); err != nil {
			m.logger.Warnf("Failed to warm console of server %s: %v", serverID, err)
		}
	}

	if desc.LogFile != "" {
		m.startTailer(ctx, serverID, desc.LogFile)
	}
}

func (m *Monitor) startTailer(ctx context.Context, serverID string, path string) {
	m.tailerMutex.Lock()
	if _, running := m.tailers[serverID]; running {
		m.tailerMutex.Unlock()

		return
	}
	m.tailerMutex.Unlock()

	tailer := m.tailerFactory(serverID, path, func(line string) {
		m.recordWarnings(m.analyzer.Observe(serverID, line))
	})

	if err := tailer.Start(ctx); err != nil {
		m.logger.Warnf("Failed to start log tailer of server %s: %v", serverID, err)
		metrics.IncErrorCount(metrics.ComponentMonitor, serverID)

		return
	}

	m.tailerMutex.Lock()
	m.tailers[serverID] = tailer
	m.tailerMutex.Unlock()
}

// onLeaveOnline tears a server down and, on abnormal exits, runs crash
// classification over the trailing log window.
func (m *Monitor) onLeaveOnline(ctx context.Context, event models.TransitionEvent) {
	recentLines := m.stopTailer(event.ServerID)

	if err := m.consoleService.Disconnect(ctx, event.ServerID); err != nil {
		m.logger.Warnf("Failed to disconnect console of server %s: %v", event.ServerID, err)
	}

	m.analyzer.Reset(event.ServerID)

	if event.Unexpected {
		m.classifyAndReport(ctx, event, recentLines)
	}
}

// stopTailer captures the trailing window before stopping, so the
// classifier still gets evidence for a server whose tailer is going away.
func (m *Monitor) stopTailer(serverID string) []string {
	m.tailerMutex.Lock()
	tailer, ok := m.tailers[serverID]
	delete(m.tailers, serverID)
	m.tailerMutex.Unlock()

	if !ok {
		return nil
	}

	recentLines := tailer.RecentLines()
	tailer.Stop()

	return recentLines
}

// classifyAndReport runs the crash classifier and appends a report unless
// the server is still in its crash cooldown. Suppressed detections are
// still classified and logged so a crash loop remains visible in the logs
// and counters even though the history stays quiet.
func (m *Monitor) classifyAndReport(ctx context.Context, event models.TransitionEvent, recentLines []string) {
	if len(recentLines) == 0 {
		recentLines = m.tailFallback(ctx, event.ServerID)
	}

	verdict := classifier.Classify(classifier.Input{
		RecentLines: recentLines,
		ExitCode:    event.ExitCode,
		Unexpected:  event.Unexpected,
	})

	if !verdict.IsCrash {
		m.logger.Infof("Server %s went down without crash evidence", event.ServerID)

		return
	}

	if !m.claimCrashCooldown(event.ServerID) {
		m.logger.Infof("Suppressing duplicate crash of server %s within cooldown: %s (%s/%s)",
			event.ServerID, verdict.Reason, verdict.Severity, verdict.Category)
		metrics.IncCrashDeduplicated(event.ServerID)

		return
	}

	snapshot := m.collector.Snapshot(ctx)

	report := models.CrashReport{
		ID:            uuid.NewString(),
		ServerID:      event.ServerID,
		Timestamp:     event.At,
		ExitCode:      event.ExitCode,
		Severity:      verdict.Severity,
		Category:      verdict.Category,
		Reason:        verdict.Reason,
		Evidence:      verdict.Evidence,
		Metrics:       &snapshot,
		EarlyWarnings: m.warningsSince(event.ServerID, event.At.Add(-constants.WarningLookback)),
		Fingerprint:   verdict.Fingerprint,
	}

	m.appendReport(report)

	m.logger.Warnf("Crash report for server %s: %s (severity=%s category=%s exit=%v)",
		event.ServerID, report.Reason, report.Severity, report.Category, event.ExitCode)
	metrics.IncCrashReport(event.ServerID, string(report.Severity))
}

// claimCrashCooldown atomically checks and sets the cooldown marker of a
// server. Two concurrent detections for the same server must resolve to
// exactly one report, so check and set happen under one lock.
func (m *Monitor) claimCrashCooldown(serverID string) bool {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	if marker, ok := m.crashCooldowns.Load(serverID); ok && !marker.IsZero() {
		return false
	}

	m.crashCooldowns.Set(serverID, time.Now())

	return true
}

// tailFallback reads the trailing log window straight from the server's
// log file. Covers a crash that happens before the tailer attached, where
// no in-memory window exists yet.
func (m *Monitor) tailFallback(ctx context.Context, serverID string) []string {
	desc, ok := m.cfg.Server(serverID)
	if !ok || desc.LogFile == "" {
		return nil
	}

	lines, err := m.fsService.ReadFileTail(ctx, desc.LogFile, constants.RecentLogWindow)
	if err != nil {
		m.logger.Debugf("No log window fallback for server %s: %v", serverID, err)

		return nil
	}

	return lines
}

func (m *Monitor) appendReport(report models.CrashReport) {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	m.crashReports = append(m.crashReports, report)
	if len(m.crashReports) > constants.CrashHistoryCapacity {
		m.crashReports = m.crashReports[len(m.crashReports)-constants.CrashHistoryCapacity:]
	}
}

// recordWarnings appends analyzer output to the bounded warning history.
func (m *Monitor) recordWarnings(warnings []models.EarlyWarning) {
	if len(warnings) == 0 {
		return
	}

	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	m.warnings = append(m.warnings, warnings...)
	if len(m.warnings) > constants.WarningHistoryCapacity {
		m.warnings = m.warnings[len(m.warnings)-constants.WarningHistoryCapacity:]
	}
}

// warningsSince returns the warnings of one server at or after the cutoff.
func (m *Monitor) warningsSince(serverID string, cutoff time.Time) []models.EarlyWarning {
	m.historyMutex.Lock()
	defer m.historyMutex.Unlock()

	var matched []models.EarlyWarning

	for _, warning := range m.warnings {
		if warning.ServerID == serverID && !warning.Timestamp.Before(cutoff) {
			matched = append(matched, warning)
		}
	}

	return matched
}

// ObserveHostMetrics feeds a host snapshot through the early-warning
// analyzer for every online server. Called periodically by the runtime.
func (m *Monitor) ObserveHostMetrics(ctx context.Context, statuses map[string]models.ServerStatus) {
	snapshot := m.collector.Snapshot(ctx)

	for serverID, status := range statuses {
		if status != models.StatusOnline {
			continue
		}

		m.recordWarnings(m.analyzer.ObserveMetrics(serverID, snapshot))
	}
}

// Stop tears down all tailers and console connections.
func (m *Monitor) Stop() {
	m.tailerMutex.Lock()
	tailers := m.tailers
	m.tailers = make(map[string]logtail.Tailer)
	m.tailerMutex.Unlock()

	for _, tailer := range tailers {
		tailer.Stop()
	}

	m.consoleService.DisconnectAll()
	m.logger.Info("Monitor stopped")
}
