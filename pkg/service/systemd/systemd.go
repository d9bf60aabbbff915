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

// Package systemd queries the process supervisor for per-unit status. The
// service is consume-only: lifecycle commands (start/stop/restart) are the
// responsibility of the external service manager, never of this subsystem.
//
// Ambiguous or unknown supervisor states map to offline. The raw
// ActiveState is kept in ServiceInfo so a poller can at least log what the
// supervisor actually said.
package systemd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/models"
	"github.com/netherwatch/netherwatch-core/pkg/service/filesystem"
)

// ServiceInfo contains the supervisor's view of one unit.
type ServiceInfo struct {
	// Status is the mapped lifecycle status.
	Status models.ServerStatus
	// ActiveState and SubState are the raw supervisor strings
	// ("active"/"running", "failed"/"failed", ...).
	ActiveState string
	SubState    string
	// MainPID is the main process id, 0 when down.
	MainPID int
	// ExitCode is the last main-process exit information, nil while the
	// unit is up or when the supervisor reported none. Processes killed
	// by a signal are recorded as the negated signal number.
	ExitCode *int
	// Failed is true when the supervisor reports the unit as failed.
	Failed bool
}

// Service defines the interface for querying the process supervisor.
type Service interface {
	// Status gets the current status of the unit.
	Status(ctx context.Context, unit string) (ServiceInfo, error)
	// UnitExists checks whether the supervisor knows the unit.
	UnitExists(ctx context.Context, unit string) (bool, error)
}

// statusProperties are the systemctl show properties the poller needs.
const statusProperties = "ActiveState,SubState,MainPID,ExecMainCode,ExecMainStatus"

// DefaultService is the default implementation of the systemd Service
// interface, shelling out to systemctl through the filesystem service.
type DefaultService struct {
	fsService filesystem.Service
	logger    *zap.SugaredLogger
}

// NewDefaultService creates a new default systemd service.
func NewDefaultService() *DefaultService {
	return &DefaultService{
		fsService: filesystem.NewDefaultService(),
		logger:    logger.For(logger.ComponentSystemdService),
	}
}

// WithFileSystemService sets a custom filesystem service.
func (s *DefaultService) WithFileSystemService(fsService filesystem.Service) *DefaultService {
	s.fsService = fsService

	return s
}

// Status gets the current status of the unit.
func (s *DefaultService) Status(ctx context.Context, unit string) (ServiceInfo, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperationTime(metrics.ComponentSystemdService, "status", time.Since(start))
	}()

	if ctx.Err() != nil {
		return ServiceInfo{}, ctx.Err()
	}

	output, err := s.fsService.ExecuteCommand(ctx, "systemctl", "show", unit,
		"--property="+statusProperties, "--no-pager")
	if err != nil {
		return ServiceInfo{}, fmt.Errorf("failed to query unit %s: %w", unit, err)
	}

	info, err := parseShowOutput(string(output))
	if err != nil {
		return ServiceInfo{}, fmt.Errorf("failed to parse status of unit %s: %w", unit, err)
	}

	if info.Status == models.StatusOffline && !isKnownActiveState(info.ActiveState) {
		s.logger.Warnf("Unit %s reported unknown state %q, treating as offline", unit, info.ActiveState)
	}

	return info, nil
}

// UnitExists checks whether the supervisor knows the unit. systemctl show
// reports LoadState=not-found for unknown units, so a separate cat-style
// query is used.
func (s *DefaultService) UnitExists(ctx context.Context, unit string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	output, err := s.fsService.ExecuteCommand(ctx, "systemctl", "show", unit,
		"--property=LoadState", "--no-pager")
	if err != nil {
		return false, fmt.Errorf("failed to query unit %s: %w", unit, err)
	}

	loadState := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(output)), "LoadState="))

	return loadState != "" && loadState != "not-found", nil
}

// parseShowOutput parses the Key=Value lines of systemctl show.
func parseShowOutput(output string) (ServiceInfo, error) {
	props := make(map[string]string)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		props[key] = value
	}

	activeState, ok := props["ActiveState"]
	if !ok {
		return ServiceInfo{}, ErrMissingActiveState
	}

	info := ServiceInfo{
		Status:      mapActiveState(activeState),
		ActiveState: activeState,
		SubState:    props["SubState"],
		Failed:      activeState == "failed",
	}

	if pid, err := strconv.Atoi(props["MainPID"]); err == nil {
		info.MainPID = pid
	}

	// Exit information is only meaningful once the process is gone.
	if info.Status == models.StatusOffline {
		info.ExitCode = exitCodeFromProps(props)
	}

	return info, nil
}

// exitCodeFromProps derives the exit code from ExecMainCode/ExecMainStatus.
// ExecMainCode 2 means the process was killed by a signal; in that case
// ExecMainStatus holds the signal number, which is recorded negated, the
// same convention supervisors use for wait statuses.
func exitCodeFromProps(props map[string]string) *int {
	mainCode, err := strconv.Atoi(props["ExecMainCode"])
	if err != nil || mainCode == 0 {
		// 0 means the process never ran (or is still running).
		return nil
	}

	mainStatus, err := strconv.Atoi(props["ExecMainStatus"])
	if err != nil {
		return nil
	}

	code := mainStatus
	if mainCode == 2 {
		code = -mainStatus
	}

	return &code
}

// mapActiveState maps a supervisor ActiveState onto the lifecycle enum.
// Unknown states deliberately collapse to offline.
func mapActiveState(activeState string) models.ServerStatus {
	switch activeState {
	case "active":
		return models.StatusOnline
	case "activating", "reloading":
		return models.StatusStarting
	case "deactivating":
		return models.StatusStopping
	case "inactive", "failed":
		return models.StatusOffline
	default:
		return models.StatusOffline
	}
}

func isKnownActiveState(activeState string) bool {
	switch activeState {
	case "active", "activating", "reloading", "deactivating", "inactive", "failed":
		return true
	default:
		return false
	}
}
