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

// Package logtail follows a game server's log file and keeps a bounded
// window of the most recent lines. The window is what the crash classifier
// sees when the server dies; the per-line consumer is how the early-warning
// analyzer sees the stream live.
//
// Tailing always starts at the current end of file: history written before
// monitoring began is not this subsystem's business. Log rotation and
// truncation are survived by reopening the path.
package logtail

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/nxadm/tail"
	"go.uber.org/zap"

	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
	"github.com/netherwatch/netherwatch-core/pkg/service/filesystem"
)

// LineConsumer receives every tailed line as it arrives.
type LineConsumer func(line string)

// Tailer follows one log file.
type Tailer interface {
	// Start begins tailing at the current end of file. It returns once the
	// follower goroutine is running.
	Start(ctx context.Context) error
	// RecentLines returns a copy of the trailing line window, oldest first.
	RecentLines() []string
	// Stop terminates tailing. Safe to call more than once.
	Stop()
}

// DefaultTailer is the default Tailer implementation backed by nxadm/tail.
type DefaultTailer struct {
	serverID  string
	path      string
	consumer  LineConsumer
	fsService filesystem.Service
	logger    *zap.SugaredLogger

	// ring is the bounded window of recent lines.
	ring  []string
	next  int
	full  bool
	mutex sync.Mutex

	tail     *tail.Tail
	stopOnce sync.Once
	done     chan struct{}
}

// NewDefaultTailer creates a tailer for one server's log file. The consumer
// may be nil when only the trailing window is of interest.
func NewDefaultTailer(serverID string, path string, consumer LineConsumer) *DefaultTailer {
	return &DefaultTailer{
		serverID:  serverID,
		path:      path,
		consumer:  consumer,
		fsService: filesystem.NewDefaultService(),
		ring:      make([]string, constants.RecentLogWindow),
		logger:    logger.For(logger.ComponentLogTailer),
		done:      make(chan struct{}),
	}
}

// WithFileSystemService sets a custom filesystem service.
func (t *DefaultTailer) WithFileSystemService(fsService filesystem.Service) *DefaultTailer {
	t.fsService = fsService

	return t
}

// Start begins tailing at the current end of file. A log file that does not
// exist yet is waited for briefly; if it still does not show up the
// follower is started anyway and picks the file up on creation.
func (t *DefaultTailer) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.waitForFile(ctx)

	tailer, err := tail.TailFile(t.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		metrics.IncErrorCount(metrics.ComponentLogTailer, t.serverID)

		return err
	}

	t.tail = tailer

	go t.follow()

	t.logger.Infof("Tailing %s for server %s", t.path, t.serverID)

	return nil
}

// waitForFile polls for the log file with exponential backoff. Best
// effort: a missing file is not an error, the reopen-follower handles
// late creation.
func (t *DefaultTailer) waitForFile(ctx context.Context) {
	exists, err := t.fsService.PathExists(ctx, t.path)
	if err == nil && exists {
		return
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 100 * time.Millisecond
	expBackoff.MaxInterval = 2 * time.Second
	expBackoff.MaxElapsedTime = constants.LogFileWaitMax

	for {
		wait := expBackoff.NextBackOff()
		if wait == backoff.Stop {
			t.logger.Warnf("Log file %s for server %s still missing, tailing will pick it up on creation", t.path, t.serverID)

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if exists, err := t.fsService.PathExists(ctx, t.path); err == nil && exists {
			return
		}
	}
}

// follow drains the tail line channel into the ring and the consumer.
func (t *DefaultTailer) follow() {
	defer close(t.done)

	for line := range t.tail.Lines {
		if line.Err != nil {
			t.logger.Warnf("Tail error on %s for server %s: %v", t.path, t.serverID, line.Err)
			metrics.IncErrorCount(metrics.ComponentLogTailer, t.serverID)

			continue
		}

		t.append(line.Text)

		if t.consumer != nil {
			t.consumer(line.Text)
		}
	}
}

func (t *DefaultTailer) append(line string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.ring[t.next] = line
	t.next = (t.next + 1) % len(t.ring)

	if t.next == 0 {
		t.full = true
	}
}

// RecentLines returns a copy of the trailing line window, oldest first.
func (t *DefaultTailer) RecentLines() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.full {
		lines := make([]string, t.next)
		copy(lines, t.ring[:t.next])

		return lines
	}

	lines := make([]string, 0, len(t.ring))
	lines = append(lines, t.ring[t.next:]...)
	lines = append(lines, t.ring[:t.next]...)

	return lines
}

// Stop terminates tailing and releases the inotify watch. Idempotent.
func (t *DefaultTailer) Stop() {
	t.stopOnce.Do(func() {
		if t.tail == nil {
			close(t.done)

			return
		}

		if err := t.tail.Stop(); err != nil {
			t.logger.Warnf("Failed to stop tail on %s for server %s: %v", t.path, t.serverID, err)
		}

		<-t.done
		t.tail.Cleanup()

		t.logger.Infof("Stopped tailing %s for server %s", t.path, t.serverID)
	})
}
