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

// Package models holds the shared domain types of the fleet core: server
// status, crash reports, early warnings and the transition events the
// lifecycle tracker publishes.
package models

import "time"

// ServerStatus is the lifecycle status of a game server as derived from the
// process supervisor. "crashed" is deliberately not a status: it is an event
// fired when a transition into offline is classified as abnormal.
type ServerStatus string

const (
	// StatusStarting means the supervisor reports the unit as activating.
	StatusStarting ServerStatus = "starting"
	// StatusOnline means the unit is active and the server process is up.
	StatusOnline ServerStatus = "online"
	// StatusStopping means the unit is deactivating.
	StatusStopping ServerStatus = "stopping"
	// StatusOffline means the unit is inactive or failed. Ambiguous
	// supervisor states also map here.
	StatusOffline ServerStatus = "offline"
)

// GaugeValue maps the status onto the metrics gauge encoding.
func (s ServerStatus) GaugeValue() float64 {
	switch s {
	case StatusStarting:
		return 1
	case StatusOnline:
		return 2
	case StatusStopping:
		return 3
	default:
		return 0
	}
}

// Severity grades a crash verdict or early warning.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so the classifier can keep the highest match.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category tells an operator which subsystem a crash or warning points at.
type Category string

const (
	CategoryMemory      Category = "memory"
	CategoryPerformance Category = "performance"
	CategoryPlugin      Category = "plugin"
	CategorySystem      Category = "system"
	CategoryNetwork     Category = "network"
	CategoryUnknown     Category = "unknown"
)

// WarningKind names the condition an early warning is about.
type WarningKind string

const (
	WarningMemoryHigh     WarningKind = "memory_high"
	WarningCPUHigh        WarningKind = "cpu_high"
	WarningFrequentErrors WarningKind = "frequent_errors"
	WarningGCPressure     WarningKind = "gc_pressure"
	WarningDiskLow        WarningKind = "disk_low"
)

// SystemMetrics is a point-in-time snapshot of host resource usage captured
// alongside a crash report or early warning.
type SystemMetrics struct {
	CapturedAt        time.Time `json:"capturedAt"`
	CPUPercent        float64   `json:"cpuPercent"`
	MemoryUsedPercent float64   `json:"memoryUsedPercent"`
	MemoryUsedBytes   uint64    `json:"memoryUsedBytes"`
	DiskUsedPercent   float64   `json:"diskUsedPercent"`
	Load1             float64   `json:"load1"`
}

// Verdict is the classifier's structured output for a single
// abnormal-transition event.
type Verdict struct {
	// IsCrash is true when any classification step produced a signal.
	IsCrash bool `json:"isCrash"`
	// Severity and Category come from the highest-severity match.
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	// Reason is the human-readable summary of the strongest match.
	Reason string `json:"reason"`
	// Evidence holds the matched log lines (and stack frames, if any).
	Evidence []string `json:"evidence"`
	// Fingerprint is a hash over the ordered evidence lines, used to spot
	// repeated identical failures in telemetry.
	Fingerprint uint64 `json:"fingerprint"`
}

// CrashReport is created by the classifier on a positive verdict and never
// mutated afterwards. Reports live in a bounded FIFO history.
type CrashReport struct {
	ID        string    `json:"id"`
	ServerID  string    `json:"serverId"`
	Timestamp time.Time `json:"timestamp"`
	// ExitCode is nil when the supervisor had no exit information.
	ExitCode *int     `json:"exitCode,omitempty"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence"`
	// Metrics is the host snapshot taken when the report was created.
	Metrics *SystemMetrics `json:"metrics,omitempty"`
	// EarlyWarnings are the warnings observed in the lookback window
	// preceding the crash.
	EarlyWarnings []EarlyWarning `json:"earlyWarnings,omitempty"`
	Fingerprint   uint64         `json:"fingerprint"`
}

// EarlyWarning is an advisory signal emitted while a server is online. It
// never triggers a crash report by itself.
type EarlyWarning struct {
	ID        string         `json:"id"`
	ServerID  string         `json:"serverId"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      WarningKind    `json:"kind"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Metrics   *SystemMetrics `json:"metrics,omitempty"`
}

// TransitionEvent is published by the lifecycle tracker whenever a server
// changes status.
type TransitionEvent struct {
	ServerID string       `json:"serverId"`
	From     ServerStatus `json:"from"`
	To       ServerStatus `json:"to"`
	// Unexpected is true for transitions out of online that were not
	// preceded by a supervisor-reported stop.
	Unexpected bool `json:"unexpected"`
	// ExitCode carries the supervisor's exit information, if any.
	ExitCode *int      `json:"exitCode,omitempty"`
	At       time.Time `json:"at"`
}
