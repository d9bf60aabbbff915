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

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netherwatch/netherwatch-core/pkg/logger"
)

const (
	// Component Labels.
	ComponentTracker = "tracker"
	// Services.
	ComponentConsoleService = "console_service"
	ComponentSystemdService = "systemd_service"
	ComponentLogTailer      = "log_tailer"
	ComponentEarlyWarning   = "early_warning"
	ComponentClassifier     = "classifier"
	ComponentSysMetrics     = "sys_metrics"
	ComponentMonitor        = "monitor"
	ComponentFilesystem     = "filesystem"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "netherwatch"
	subsystem = "core"

	// Error counters.
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "server"},
	)

	// Operation timing.
	operationTime = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_milliseconds",
			Help:      "Time taken per operation (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01, // 50th percentile with 1% error
				0.9:  0.01, // 90th percentile with 1% error
				0.99: 0.01, // 99th percentile with 1% error
			},
		},
		[]string{"component", "operation"},
	)

	// Server status gauge.
	serverStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "server_status",
			Help:      "Current status of the server (0=offline, 1=starting, 2=online, 3=stopping)",
		},
		[]string{"server"},
	)

	// Console pool metrics.
	consoleDialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "console_dials_total",
			Help:      "Total number of console dial attempts by outcome",
		},
		[]string{"server", "outcome"},
	)

	consoleEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "console_evictions_total",
			Help:      "Total number of console handles evicted after a failure",
		},
		[]string{"server"},
	)

	consoleActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "console_active_connections",
			Help:      "Number of live console connections in the pool",
		},
	)

	// Crash detection metrics.
	crashReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "crash_reports_total",
			Help:      "Total number of crash reports by severity",
		},
		[]string{"server", "severity"},
	)

	crashDeduplicatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "crash_deduplicated_total",
			Help:      "Total number of crash detections suppressed by the cooldown window",
		},
		[]string{"server"},
	)

	earlyWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "early_warnings_total",
			Help:      "Total number of early warnings by kind",
		},
		[]string{"server", "kind"},
	)
)

// IncErrorCount increments the error counter for a component/server pair.
func IncErrorCount(component string, server string) {
	errorCounter.WithLabelValues(component, server).Inc()
}

// ObserveOperationTime records the duration of an operation in milliseconds.
func ObserveOperationTime(component string, operation string, duration time.Duration) {
	operationTime.WithLabelValues(component, operation).Observe(float64(duration.Milliseconds()))
}

// SetServerStatus updates the status gauge for a server.
func SetServerStatus(server string, status float64) {
	serverStatus.WithLabelValues(server).Set(status)
}

// IncConsoleDial counts a dial attempt; outcome is "success" or "failure".
func IncConsoleDial(server string, outcome string) {
	consoleDialsTotal.WithLabelValues(server, outcome).Inc()
}

// IncConsoleEviction counts an evicted handle.
func IncConsoleEviction(server string) {
	consoleEvictionsTotal.WithLabelValues(server).Inc()
}

// SetActiveConnections updates the live connection gauge.
func SetActiveConnections(n float64) {
	consoleActiveConnections.Set(n)
}

// IncCrashReport counts a stored crash report.
func IncCrashReport(server string, severity string) {
	crashReportsTotal.WithLabelValues(server, severity).Inc()
}

// IncCrashDeduplicated counts a suppressed duplicate detection.
func IncCrashDeduplicated(server string) {
	crashDeduplicatedTotal.WithLabelValues(server).Inc()
}

// IncEarlyWarning counts an emitted early warning.
func IncEarlyWarning(server string, kind string) {
	earlyWarningsTotal.WithLabelValues(server, kind).Inc()
}

// SetupMetricsEndpoint starts an HTTP server to expose metrics
// This should be called once at application startup.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.For("metrics").Errorf("Metrics server stopped: %v", err)
		}
	}()

	return server
}
