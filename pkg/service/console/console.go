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

// Package console maintains at most one remote-console connection per game
// server and executes admin commands over them. Connections are dialed
// lazily, probed before reuse and evicted on any connection-class failure;
// the next command dials fresh. Network-wide commands are rerouted to the
// hub server before execution.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/constants"
	"github.com/netherwatch/netherwatch-core/pkg/logger"
	"github.com/netherwatch/netherwatch-core/pkg/metrics"
)

// Service defines the interface for executing console commands against the
// fleet.
type Service interface {
	// Execute runs a command on a server, routing network-wide verbs to
	// the hub first.
	Execute(ctx context.Context, serverID string, command string) (string, error)
	// Connect warms the connection for a server without running a command.
	Connect(ctx context.Context, serverID string) error
	// Disconnect evicts and closes the handle of a server.
	Disconnect(ctx context.Context, serverID string) error
	// DisconnectAll drops every live connection.
	DisconnectAll()
}

// connectionHandle owns at most one live connection for one server. The
// conn field has exactly one owner: takeAndClose swaps it to nil under the
// lock, so a handle can be closed only once no matter how many callers
// race on eviction.
type connectionHandle struct {
	serverID string

	// cmdMutex serializes command execution on this server.
	cmdMutex sync.Mutex

	// connMutex guards conn ownership.
	connMutex sync.Mutex
	conn      Conn
}

func (h *connectionHandle) get() Conn {
	h.connMutex.Lock()
	defer h.connMutex.Unlock()

	return h.conn
}

func (h *connectionHandle) set(conn Conn) {
	h.connMutex.Lock()
	defer h.connMutex.Unlock()
	h.conn = conn
}

// takeAndClose takes ownership of the connection and closes it. Returns
// false when another caller already took it.
func (h *connectionHandle) takeAndClose() bool {
	h.connMutex.Lock()
	conn := h.conn
	h.conn = nil
	h.connMutex.Unlock()

	if conn == nil {
		return false
	}

	_ = conn.Close()

	return true
}

// DefaultConsoleService is the default implementation of the console
// Service interface.
type DefaultConsoleService struct {
	cfg    *config.FleetConfig
	dialer Dialer

	handles     map[string]*connectionHandle
	handleMutex sync.Mutex

	// dialGroup coalesces concurrent dials per server id so a slow or
	// unreachable console is dialed once, not once per caller.
	dialGroup singleflight.Group

	logger *zap.SugaredLogger
}

// NewDefaultConsoleService creates a new console service for the fleet.
func NewDefaultConsoleService(cfg *config.FleetConfig) *DefaultConsoleService {
	return &DefaultConsoleService{
		cfg:     cfg,
		dialer:  NewDefaultDialer(),
		handles: make(map[string]*connectionHandle),
		logger:  logger.For(logger.ComponentConsoleService),
	}
}

// WithDialer sets a custom dialer.
func (s *DefaultConsoleService) WithDialer(dialer Dialer) *DefaultConsoleService {
	s.dialer = dialer

	return s
}

// Execute runs a command on a server. The credentials of the requested
// server are checked before any routing: a command addressed to a
// console-less server fails even if routing would have moved it elsewhere.
func (s *DefaultConsoleService) Execute(ctx context.Context, serverID string, command string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperationTime(metrics.ComponentConsoleService, "execute", time.Since(start))
	}()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	requested, ok := s.cfg.Server(serverID)
	if !ok {
		return "", fmt.Errorf("server %s: %w", serverID, ErrUnknownServer)
	}

	if !requested.HasConsole() {
		return "", fmt.Errorf("server %s: %w", serverID, ErrUnsupportedProtocol)
	}

	targetID := ResolveTarget(serverID, s.cfg.FallbackServerID, command)
	if targetID != serverID {
		s.logger.Debugf("Routing command %q from server %s to hub %s", command, serverID, targetID)
	}

	target, ok := s.cfg.Server(targetID)
	if !ok {
		return "", fmt.Errorf("server %s: %w", targetID, ErrUnknownServer)
	}

	handle := s.handle(targetID)

	handle.cmdMutex.Lock()
	defer handle.cmdMutex.Unlock()

	conn := handle.get()
	if conn != nil {
		// Probe before reuse. A pooled connection may have died silently
		// since the last command; losing the probe only costs an eviction.
		if _, err := s.run(ctx, handle, conn, constants.ConsoleProbeCommand); err != nil {
			if ctx.Err() != nil {
				return "", err
			}

			s.logger.Infof("Probe failed for server %s, redialing: %v", targetID, err)
			s.evict(handle)
			conn = nil
		}
	}

	if conn == nil {
		dialed, err := s.dial(ctx, handle, target)
		if err != nil {
			return "", err
		}

		conn = dialed
	}

	return s.run(ctx, handle, conn, command)
}

// Connect warms the connection of a server without executing anything.
func (s *DefaultConsoleService) Connect(ctx context.Context, serverID string) error {
	desc, ok := s.cfg.Server(serverID)
	if !ok {
		return fmt.Errorf("server %s: %w", serverID, ErrUnknownServer)
	}

	if !desc.HasConsole() {
		return fmt.Errorf("server %s: %w", serverID, ErrUnsupportedProtocol)
	}

	handle := s.handle(serverID)
	if handle.get() != nil {
		return nil
	}

	_, err := s.dial(ctx, handle, desc)

	return err
}

// Disconnect evicts and closes the handle of a server. Idempotent.
func (s *DefaultConsoleService) Disconnect(_ context.Context, serverID string) error {
	s.handleMutex.Lock()
	handle, ok := s.handles[serverID]
	s.handleMutex.Unlock()

	if !ok {
		return nil
	}

	if handle.takeAndClose() {
		s.logger.Infof("Disconnected console of server %s", serverID)
	}

	s.updateActiveGauge()

	return nil
}

// DisconnectAll drops every live connection. Used on shutdown; does not
// wait for in-flight commands.
func (s *DefaultConsoleService) DisconnectAll() {
	s.handleMutex.Lock()
	handles := make([]*connectionHandle, 0, len(s.handles))
	for _, handle := range s.handles {
		handles = append(handles, handle)
	}
	s.handleMutex.Unlock()

	for _, handle := range handles {
		handle.takeAndClose()
	}

	s.updateActiveGauge()
	s.logger.Info("Disconnected all console connections")
}

// handle returns the handle of a server, creating it on first use. Handles
// themselves are never removed, only their connections.
func (s *DefaultConsoleService) handle(serverID string) *connectionHandle {
	s.handleMutex.Lock()
	defer s.handleMutex.Unlock()

	handle, ok := s.handles[serverID]
	if !ok {
		handle = &connectionHandle{serverID: serverID}
		s.handles[serverID] = handle
	}

	return handle
}

// dial establishes a connection for a handle, coalescing concurrent
// attempts per server id. A failed dial is returned to every waiter and
// never retried synchronously.
func (s *DefaultConsoleService) dial(ctx context.Context, handle *connectionHandle, desc config.ServerDescriptor) (Conn, error) {
	value, err, _ := s.dialGroup.Do(desc.ID, func() (any, error) {
		if existing := handle.get(); existing != nil {
			return existing, nil
		}

		conn, err := s.dialer.Dial(ctx, desc.RconAddress(), desc.RconPassword)
		if err != nil {
			metrics.IncConsoleDial(desc.ID, "failure")
			metrics.IncErrorCount(metrics.ComponentConsoleService, desc.ID)

			return nil, fmt.Errorf("dial console of server %s: %w: %w", desc.ID, ErrConnectionFailed, err)
		}

		handle.set(conn)
		metrics.IncConsoleDial(desc.ID, "success")
		s.updateActiveGauge()
		s.logger.Infof("Console connected for server %s", desc.ID)

		return conn, nil
	})
	if err != nil {
		return nil, err
	}

	conn, ok := value.(Conn)
	if !ok {
		return nil, fmt.Errorf("dial console of server %s: %w", desc.ID, ErrConnectionFailed)
	}

	return conn, nil
}

// run executes one command over a live connection, bounded by the execute
// timeout. Timeouts and transport failures evict the handle; a remote
// rejection over a healthy connection keeps it.
func (s *DefaultConsoleService) run(ctx context.Context, handle *connectionHandle, conn Conn, command string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, constants.ConsoleExecuteTimeout)
	defer cancel()

	type result struct {
		response string
		err      error
	}

	resultChan := make(chan result, 1)

	go func() {
		response, err := conn.Execute(command)
		resultChan <- result{response: response, err: err}
	}()

	select {
	case <-execCtx.Done():
		// Closing the connection unblocks the goroutine's pending I/O.
		s.evict(handle)
		metrics.IncErrorCount(metrics.ComponentConsoleService, handle.serverID)

		// A cancelled caller is not a slow server.
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("command on server %s: %w", handle.serverID, err)
		}

		return "", fmt.Errorf("command on server %s: %w", handle.serverID, ErrCommandTimeout)
	case res := <-resultChan:
		if res.err == nil {
			return res.response, nil
		}

		metrics.IncErrorCount(metrics.ComponentConsoleService, handle.serverID)

		if isConnectionError(res.err) {
			s.evict(handle)

			return "", fmt.Errorf("command on server %s: %w: %w", handle.serverID, ErrConnectionFailed, res.err)
		}

		return "", fmt.Errorf("command on server %s: %w: %w", handle.serverID, ErrProtocolError, res.err)
	}
}

// evict closes a handle's connection exactly once and updates telemetry.
func (s *DefaultConsoleService) evict(handle *connectionHandle) {
	if handle.takeAndClose() {
		metrics.IncConsoleEviction(handle.serverID)
		s.logger.Infof("Evicted console connection of server %s", handle.serverID)
	}

	s.updateActiveGauge()
}

func (s *DefaultConsoleService) updateActiveGauge() {
	s.handleMutex.Lock()
	defer s.handleMutex.Unlock()

	active := 0

	for _, handle := range s.handles {
		if handle.get() != nil {
			active++
		}
	}

	metrics.SetActiveConnections(float64(active))
}

// isConnectionError tells transport-level failures apart from remote
// rejections. Transport failures poison the connection, rejections do not.
func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
