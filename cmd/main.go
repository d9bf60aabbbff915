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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/fsm/gameserver"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/monitor"
)

func main() {
	// Initialize the global logger first thing
	logger.Initialize()
	defer logger.Sync()

	log := logger.For(logger.ComponentCore)
	log.Info("Starting netherwatch-core...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(config.ConfigPathFromEnv())
	if err != nil {
		log.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// The config level wins over the LOGGING_LEVEL environment variable.
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
		log = logger.For(logger.ComponentCore)
	}

	// Start the metrics server
	server := metrics.SetupMetricsEndpoint(fmt.Sprintf(":%d", cfg.MetricsPort))
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Failed to shutdown metrics server: %v", err)
		}
	}()

	fleetMonitor := monitor.NewMonitor(&cfg)
	defer fleetMonitor.Stop()

	tracker := gameserver.NewTracker(&cfg)
	tracker.Subscribe(fleetMonitor)
	fleetMonitor.WithStatusProvider(tracker)

	tracker.Start(ctx)
	log.Infof("Tracking %d servers, polling every %s", len(cfg.Servers), cfg.PollInterval())

	// Feed host snapshots through the early-warning analyzer alongside the
	// supervisor polling.
	go func() {
		ticker := time.NewTicker(cfg.PollInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fleetMonitor.ObserveHostMetrics(ctx, tracker.Statuses())
			}
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signals
	log.Infof("Received signal %s, shutting down", sig)
	cancel()
}
