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

// Package gameserver tracks the lifecycle of every game server in the
// fleet. One Instance wraps a state machine per server; the Tracker polls
// the process supervisor and drives the machines, publishing a transition
// event for every observed change.
package gameserver

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// Machine states mirror the lifecycle statuses one to one.
const (
	stateStarting = string(models.StatusStarting)
	stateOnline   = string(models.StatusOnline)
	stateStopping = string(models.StatusStopping)
	stateOffline  = string(models.StatusOffline)
)

// Events are named after the status being entered. A poll can easily miss
// intermediate states, so most events accept every other state as source
// and the machine tolerates jumps like online straight to offline. Only
// stopping is restricted: an offline server cannot be deactivating.
const (
	eventStarting = "observe_starting"
	eventOnline   = "observe_online"
	eventStopping = "observe_stopping"
	eventOffline  = "observe_offline"
)

// Instance is the state machine of one game server.
type Instance struct {
	serverID string
	machine  *fsm.FSM
	// mutex serializes the status-check/transition pair: the poll loop and
	// an external crash assertion may target the same instance, and only
	// one of them may observe online and publish the abnormal transition.
	mutex sync.Mutex
	// lastExit remembers the most recent supervisor exit information so a
	// transition event can carry it.
	lastExit *int
	logger   *zap.SugaredLogger
}

// NewInstance creates an instance starting in the offline state.
func NewInstance(serverID string) *Instance {
	instance := &Instance{
		serverID: serverID,
		logger:   logger.For(logger.ComponentServerInstance),
	}

	instance.machine = fsm.NewFSM(
		stateOffline,
		fsm.Events{
			{Name: eventStarting, Src: []string{stateOffline, stateOnline, stateStopping}, Dst: stateStarting},
			{Name: eventOnline, Src: []string{stateOffline, stateStarting, stateStopping}, Dst: stateOnline},
			{Name: eventStopping, Src: []string{stateStarting, stateOnline}, Dst: stateStopping},
			{Name: eventOffline, Src: []string{stateStarting, stateOnline, stateStopping}, Dst: stateOffline},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				instance.logger.Infof("Server %s: %s -> %s", instance.serverID, e.Src, e.Dst)
			},
		},
	)

	return instance
}

// Status returns the current lifecycle status.
func (i *Instance) Status() models.ServerStatus {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return i.current()
}

func (i *Instance) current() models.ServerStatus {
	return models.ServerStatus(i.machine.Current())
}

// Observe feeds one polled supervisor status into the machine. It returns
// the transition event when the status changed, nil otherwise.
//
// Leaving online is unexpected unless the supervisor was seen deactivating
// first: an online machine that next reports stopping is on the normal
// stop path, while a jump from online to offline or starting means the
// process died under us.
func (i *Instance) Observe(ctx context.Context, status models.ServerStatus, exitCode *int) *models.TransitionEvent {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	from := i.current()
	if from == status {
		if exitCode != nil {
			i.lastExit = exitCode
		}

		return nil
	}

	if exitCode != nil {
		i.lastExit = exitCode
	}

	if err := i.machine.Event(ctx, eventFor(status)); err != nil {
		// The transition table covers every cross-state jump, so this is
		// strictly a safety net.
		i.logger.Warnf("Server %s: forcing state %s after transition error: %v", i.serverID, status, err)
		i.machine.SetState(string(status))
	}

	event := &models.TransitionEvent{
		ServerID:   i.serverID,
		From:       from,
		To:         status,
		Unexpected: from == models.StatusOnline && status != models.StatusStopping,
		At:         time.Now().UTC(),
	}

	if status == models.StatusOffline {
		event.ExitCode = i.lastExit
	}

	if status == models.StatusOnline {
		// A fresh run invalidates stale exit information.
		i.lastExit = nil
	}

	return event
}

// AssertCrashed forces an online server into offline as an abnormal exit.
// Used when an external signal (not the supervisor poll) declares the
// server dead.
func (i *Instance) AssertCrashed(ctx context.Context) *models.TransitionEvent {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.current() != models.StatusOnline {
		return nil
	}

	if err := i.machine.Event(ctx, eventOffline); err != nil {
		i.machine.SetState(stateOffline)
	}

	return &models.TransitionEvent{
		ServerID:   i.serverID,
		From:       models.StatusOnline,
		To:         models.StatusOffline,
		Unexpected: true,
		ExitCode:   i.lastExit,
		At:         time.Now().UTC(),
	}
}

func eventFor(status models.ServerStatus) string {
	switch status {
	case models.StatusStarting:
		return eventStarting
	case models.StatusOnline:
		return eventOnline
	case models.StatusStopping:
		return eventStopping
	default:
		return eventOffline
	}
}
