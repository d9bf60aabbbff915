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

// Package sysmetrics samples host-level resource usage so crash reports
// and early warnings can carry the machine state they happened under.
//
// Collection is best effort: a probe that fails is logged and left at its
// zero value rather than failing the whole snapshot. A crash report with
// partial metrics beats no crash report.
package sysmetrics

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// Collector takes point-in-time snapshots of host resource usage.
type Collector interface {
	// Snapshot samples CPU, memory, disk and load once.
	Snapshot(ctx context.Context) models.SystemMetrics
}

// DefaultCollector is the default Collector implementation backed by
// gopsutil.
type DefaultCollector struct {
	// dataPath is the mount point sampled for disk usage.
	dataPath string
	logger   *zap.SugaredLogger
}

// NewDefaultCollector creates a new default collector sampling the root
// filesystem.
func NewDefaultCollector() *DefaultCollector {
	return &DefaultCollector{
		dataPath: "/",
		logger:   logger.For(logger.ComponentSysMetrics),
	}
}

// WithDataPath sets the mount point sampled for disk usage.
func (c *DefaultCollector) WithDataPath(path string) *DefaultCollector {
	c.dataPath = path

	return c
}

// Snapshot samples CPU, memory, disk and load once. The CPU probe uses
// interval 0, i.e. usage since the previous call, so snapshots stay cheap
// on the polling path.
func (c *DefaultCollector) Snapshot(ctx context.Context) models.SystemMetrics {
	start := time.Now()
	defer func() {
		metrics.ObserveOperationTime(metrics.ComponentSysMetrics, "snapshot", time.Since(start))
	}()

	snapshot := models.SystemMetrics{
		CapturedAt: time.Now().UTC(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		c.logger.Debugf("Failed to sample CPU usage: %v", err)
		metrics.IncErrorCount(metrics.ComponentSysMetrics, "host")
	} else if len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}

	if vmStat, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.logger.Debugf("Failed to sample memory usage: %v", err)
		metrics.IncErrorCount(metrics.ComponentSysMetrics, "host")
	} else {
		snapshot.MemoryUsedPercent = vmStat.UsedPercent
		snapshot.MemoryUsedBytes = vmStat.Used
	}

	if usage, err := disk.UsageWithContext(ctx, c.dataPath); err != nil {
		c.logger.Debugf("Failed to sample disk usage of %s: %v", c.dataPath, err)
		metrics.IncErrorCount(metrics.ComponentSysMetrics, "host")
	} else {
		snapshot.DiskUsedPercent = usage.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		c.logger.Debugf("Failed to sample load average: %v", err)
		metrics.IncErrorCount(metrics.ComponentSysMetrics, "host")
	} else {
		snapshot.Load1 = avg.Load1
	}

	return snapshot
}
