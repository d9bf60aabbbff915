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

// Package config loads and validates the static fleet configuration: the
// server descriptors, the designated console fallback server and the
// runtime tunables. The configuration is read once at startup and treated
// as immutable afterwards.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netherwatch/netherwatch-core/pkg/constants"
)

// ServerDescriptor is the static per-server configuration. A descriptor
// without an RCON password describes a server that does not speak the
// console protocol at all (typically the network-control proxy).
type ServerDescriptor struct {
	// ID is the unique logical server id ("hub", "survival", ...).
	ID string `yaml:"id"`
	// Name is the operator-facing display name.
	Name string `yaml:"name"`
	// RconHost and RconPort locate the remote-console port. RconHost
	// defaults to localhost.
	RconHost string `yaml:"rconHost"`
	RconPort int    `yaml:"rconPort"`
	// RconPassword authenticates the console session. Empty means the
	// server does not support the console protocol.
	RconPassword string `yaml:"rconPassword"`
	// LogFile is the absolute path of the server's append-only log.
	LogFile string `yaml:"logFile"`
	// Unit is the systemd unit name supervising the server process.
	Unit string `yaml:"unit"`
}

// HasConsole reports whether the descriptor carries console credentials.
func (d ServerDescriptor) HasConsole() bool {
	return d.RconPassword != ""
}

// RconAddress returns the host:port dial target for the console port.
func (d ServerDescriptor) RconAddress() string {
	host := d.RconHost
	if host == "" {
		host = "localhost"
	}

	return fmt.Sprintf("%s:%d", host, d.RconPort)
}

// FleetConfig is the root configuration document.
type FleetConfig struct {
	// Servers lists every managed server.
	Servers []ServerDescriptor `yaml:"servers"`
	// FallbackServerID is the one hub server network-wide commands are
	// rewritten to. It must exist and carry console credentials.
	FallbackServerID string `yaml:"fallbackServerId"`
	// MetricsPort serves the prometheus endpoint.
	MetricsPort int `yaml:"metricsPort"`
	// PollIntervalMs is the supervisor polling cadence in milliseconds.
	PollIntervalMs int `yaml:"pollIntervalMs"`
	// LogLevel overrides the LOGGING_LEVEL environment variable.
	LogLevel string `yaml:"logLevel"`
}

// PollInterval returns the polling cadence as a duration.
func (c *FleetConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DefaultConfigPath is used when NETHERWATCH_CONFIG is not set.
const DefaultConfigPath = "/etc/netherwatch/config.yaml"

// ConfigPathFromEnv resolves the config file location.
func ConfigPathFromEnv() string {
	if path := os.Getenv("NETHERWATCH_CONFIG"); path != "" {
		return path
	}

	return DefaultConfigPath
}

// Load reads, parses and validates the configuration file at path.
// Unknown yaml keys are rejected so typos fail loudly at startup.
func Load(path string) (FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FleetConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a raw configuration document.
func Parse(data []byte) (FleetConfig, error) {
	var cfg FleetConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return FleetConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return FleetConfig{}, err
	}

	return cfg, nil
}

func (c *FleetConfig) applyDefaults() {
	if c.MetricsPort == 0 {
		c.MetricsPort = constants.DefaultMetricsPort
	}

	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = int(constants.DefaultPollInterval / time.Millisecond)
	}
}

// applyEnvOverrides lets deployment tooling override selected values
// without touching the file.
func (c *FleetConfig) applyEnvOverrides() {
	if v := os.Getenv("NETHERWATCH_METRICS_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.MetricsPort = port
		}
	}

	if v := os.Getenv("NETHERWATCH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PollIntervalMs = int(d / time.Millisecond)
		}
	}
}

// Validate checks the invariants the rest of the system relies on.
func (c *FleetConfig) Validate() error {
	if len(c.Servers) == 0 {
		return ErrNoServers
	}

	seen := make(map[string]struct{}, len(c.Servers))

	for _, srv := range c.Servers {
		if srv.ID == "" {
			return ErrEmptyServerID
		}

		if _, dup := seen[srv.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateServerID, srv.ID)
		}

		seen[srv.ID] = struct{}{}

		if srv.HasConsole() && srv.RconPort <= 0 {
			return fmt.Errorf("%w: server %s", ErrInvalidRconPort, srv.ID)
		}

		if srv.Unit == "" {
			return fmt.Errorf("%w: server %s", ErrMissingUnit, srv.ID)
		}
	}

	if c.FallbackServerID == "" {
		return ErrNoFallbackServer
	}

	fallback, ok := c.Server(c.FallbackServerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFallbackServer, c.FallbackServerID)
	}

	// The fallback is the terminal routing target; a fallback without
	// console credentials would make every network-wide command fail.
	if !fallback.HasConsole() {
		return fmt.Errorf("%w: %s", ErrFallbackWithoutConsole, c.FallbackServerID)
	}

	return nil
}

// Server returns the descriptor for the given id.
func (c *FleetConfig) Server(id string) (ServerDescriptor, bool) {
	for _, srv := range c.Servers {
		if srv.ID == id {
			return srv, true
		}
	}

	return ServerDescriptor{}, false
}
