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

// Package constants centralizes every tunable of the fleet core so that
// timeouts and thresholds are declared once instead of scattered through
// the services.
package constants

import "time"

const (
	// DefaultPollInterval is how often the lifecycle tracker queries the
	// process supervisor for every unit.
	DefaultPollInterval = 5 * time.Second

	// SupervisorQueryTimeout bounds a single systemctl invocation.
	SupervisorQueryTimeout = 3 * time.Second

	// ConsoleDialTimeout bounds the TCP connect + RCON authentication of a
	// single dial attempt.
	ConsoleDialTimeout = 5 * time.Second

	// ConsoleExecuteTimeout is the hard per-command timeout. A command that
	// exceeds it is treated as a connection-class failure and the handle is
	// evicted, never retried in place.
	ConsoleExecuteTimeout = 5 * time.Second

	// ConsoleProbeCommand is the lightweight command issued against an
	// existing handle before reusing it.
	ConsoleProbeCommand = "list"
)

const (
	// RecentLogWindow is the number of trailing log lines kept for the
	// classifier when an abnormal transition fires.
	RecentLogWindow = 200

	// CrashHistoryCapacity bounds the per-fleet crash report FIFO.
	CrashHistoryCapacity = 50

	// WarningHistoryCapacity bounds the early-warning FIFO.
	WarningHistoryCapacity = 200

	// CrashCooldown suppresses duplicate crash reports for the same server.
	// Cleared early when the server comes back online.
	CrashCooldown = 2 * time.Minute

	// WarningLookback is how far back early warnings are pulled in as
	// context when a crash report is created.
	WarningLookback = 30 * time.Minute
)

const (
	// ErrorRateWindow is the sliding window for the frequent-errors counter.
	ErrorRateWindow = time.Hour

	// ErrorRateThreshold is the count above which a frequent_errors warning
	// fires (strictly greater than).
	ErrorRateThreshold = 10

	// WarningCooldown is the minimum spacing between two warnings of the
	// same kind for the same server.
	WarningCooldown = 5 * time.Minute

	// MemoryHighPercent / CPUHighPercent / DiskLowFreePercent are the
	// metrics-snapshot thresholds for the corresponding warning kinds.
	MemoryHighPercent  = 90.0
	CPUHighPercent     = 95.0
	DiskLowFreePercent = 10.0
)

const (
	// DefaultMetricsPort serves the prometheus endpoint.
	DefaultMetricsPort = 8105

	// ShutdownTimeout bounds the graceful shutdown of the metrics server
	// and the tracker loop.
	ShutdownTimeout = 3 * time.Second

	// LogFileWaitMax caps the backoff spent waiting for a server log file
	// to appear after the unit reports online.
	LogFileWaitMax = 30 * time.Second
)
