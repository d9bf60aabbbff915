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

package gameserver

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/models"
	"github.com/netherwatch/netherwatch-core/pkg/service/systemd"
)

// Subscriber receives every published transition event. Handlers run on
// the poll loop and should hand heavy work off to their own goroutines.
type Subscriber interface {
	HandleTransition(ctx context.Context, event models.TransitionEvent)
}

// serverPoll is the per-server poll bookkeeping: which unit to ask about
// and how to back off when the supervisor query keeps failing.
type serverPoll struct {
	unit     string
	instance *Instance

	backoff     *backoff.ExponentialBackOff
	nextAttempt time.Time
}

// Tracker drives all server instances off one supervisor poll loop.
type Tracker struct {
	systemdService systemd.Service
	pollInterval   time.Duration

	servers map[string]*serverPoll
	mutex   sync.Mutex

	subscribers []Subscriber
	subMutex    sync.Mutex

	logger *zap.SugaredLogger
}

// NewTracker creates a tracker for every server in the fleet config.
func NewTracker(cfg *config.FleetConfig) *Tracker {
	tracker := &Tracker{
		systemdService: systemd.NewDefaultService(),
		pollInterval:   cfg.PollInterval(),
		servers:        make(map[string]*serverPoll),
		logger:         logger.For(logger.ComponentTracker),
	}

	for _, srv := range cfg.Servers {
		tracker.servers[srv.ID] = &serverPoll{
			unit:     srv.Unit,
			instance: NewInstance(srv.ID),
			backoff:  newPollBackoff(tracker.pollInterval),
		}
	}

	return tracker
}

// WithSystemdService sets a custom supervisor service.
func (t *Tracker) WithSystemdService(service systemd.Service) *Tracker {
	t.systemdService = service

	return t
}

// Subscribe registers a transition subscriber. Must be called before
// Start.
func (t *Tracker) Subscribe(subscriber Subscriber) {
	t.subMutex.Lock()
	defer t.subMutex.Unlock()
	t.subscribers = append(t.subscribers, subscriber)
}

// Start launches the poll loop. It returns immediately; the loop stops
// when the context is cancelled.
func (t *Tracker) Start(ctx context.Context) {
	go t.run(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	// First poll right away so statuses are known before the first tick.
	t.pollAll(ctx)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Lifecycle tracker stopped")

			return
		case <-ticker.C:
			t.pollAll(ctx)
		}
	}
}

// pollAll polls every server once. Query failures back off per server and
// never abort the loop.
func (t *Tracker) pollAll(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperationTime(metrics.ComponentTracker, "poll_all", time.Since(start))
	}()

	for serverID, poll := range t.pollTargets() {
		if ctx.Err() != nil {
			return
		}

		t.pollOne(ctx, serverID, poll)
	}
}

// pollTargets snapshots the server map so polling runs without the lock.
func (t *Tracker) pollTargets() map[string]*serverPoll {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	targets := make(map[string]*serverPoll, len(t.servers))
	for serverID, poll := range t.servers {
		targets[serverID] = poll
	}

	return targets
}

func (t *Tracker) pollOne(ctx context.Context, serverID string, poll *serverPoll) {
	now := time.Now()
	if now.Before(poll.nextAttempt) {
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, constants.SupervisorQueryTimeout)
	defer cancel()

	info, err := t.systemdService.Status(queryCtx, poll.unit)
	if err != nil {
		metrics.IncErrorCount(metrics.ComponentTracker, serverID)

		wait := poll.backoff.NextBackOff()
		if wait == backoff.Stop {
			poll.backoff.Reset()
			wait = poll.backoff.NextBackOff()
		}

		poll.nextAttempt = now.Add(wait)
		t.logger.Warnf("Failed to poll server %s (unit %s), next attempt in %s: %v", serverID, poll.unit, wait, err)

		return
	}

	poll.backoff.Reset()
	poll.nextAttempt = time.Time{}

	event := poll.instance.Observe(ctx, info.Status, info.ExitCode)
	if event == nil {
		return
	}

	metrics.SetServerStatus(serverID, event.To.GaugeValue())
	t.publish(ctx, *event)
}

// publish hands the event to every subscriber in registration order.
func (t *Tracker) publish(ctx context.Context, event models.TransitionEvent) {
	t.subMutex.Lock()
	subscribers := make([]Subscriber, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.subMutex.Unlock()

	for _, subscriber := range subscribers {
		subscriber.HandleTransition(ctx, event)
	}
}

// Status returns the current status of a server, offline for unknown ids.
func (t *Tracker) Status(serverID string) models.ServerStatus {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	poll, ok := t.servers[serverID]
	if !ok {
		return models.StatusOffline
	}

	return poll.instance.Status()
}

// Statuses returns the current status of every tracked server.
func (t *Tracker) Statuses() map[string]models.ServerStatus {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	statuses := make(map[string]models.ServerStatus, len(t.servers))
	for serverID, poll := range t.servers {
		statuses[serverID] = poll.instance.Status()
	}

	return statuses
}

// AssertCrashed declares an online server dead out of band and publishes
// the resulting abnormal transition.
func (t *Tracker) AssertCrashed(ctx context.Context, serverID string) {
	t.mutex.Lock()
	poll, ok := t.servers[serverID]
	t.mutex.Unlock()

	if !ok {
		return
	}

	event := poll.instance.AssertCrashed(ctx)
	if event == nil {
		return
	}

	metrics.SetServerStatus(serverID, event.To.GaugeValue())
	t.publish(ctx, *event)
}

func newPollBackoff(pollInterval time.Duration) *backoff.ExponentialBackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = pollInterval
	expBackoff.MaxInterval = 2 * time.Minute
	// Never give up on a unit, just keep the interval capped.
	expBackoff.MaxElapsedTime = 0

	return expBackoff
}
