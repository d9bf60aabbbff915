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

package config_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/constants"
)

const validYaml = `
servers:
  - id: hub
    name: Hub
    rconHost: 127.0.0.1
    rconPort: 25575
    rconPassword: secret
    logFile: /srv/minecraft/hub/logs/latest.log
    unit: mc-hub.service
  - id: survival
    rconPort: 25576
    rconPassword: secret
    logFile: /srv/minecraft/survival/logs/latest.log
    unit: mc-survival.service
  - id: proxy
    unit: mc-proxy.service
fallbackServerId: hub
metricsPort: 9200
pollIntervalMs: 2000
`

var _ = Describe("Config", func() {
	Describe("Parse", func() {
		It("should decode a valid document", func() {
			cfg, err := config.Parse([]byte(validYaml))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Servers).To(HaveLen(3))
			Expect(cfg.FallbackServerID).To(Equal("hub"))
			Expect(cfg.MetricsPort).To(Equal(9200))
			Expect(cfg.PollInterval()).To(Equal(2 * time.Second))
		})

		It("should apply defaults for omitted values", func() {
			cfg, err := config.Parse([]byte(`
servers:
  - id: hub
    rconPort: 25575
    rconPassword: secret
    unit: mc-hub.service
fallbackServerId: hub
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.MetricsPort).To(Equal(constants.DefaultMetricsPort))
			Expect(cfg.PollInterval()).To(Equal(constants.DefaultPollInterval))
		})

		It("should reject unknown keys", func() {
			_, err := config.Parse([]byte(`
servers:
  - id: hub
    rconPort: 25575
    rconPassword: secret
    unit: mc-hub.service
fallbackServerId: hub
bogusKey: true
`))
			Expect(err).To(HaveOccurred())
		})

		It("should default the console host to localhost", func() {
			cfg, err := config.Parse([]byte(validYaml))
			Expect(err).ToNot(HaveOccurred())

			survival, ok := cfg.Server("survival")
			Expect(ok).To(BeTrue())
			Expect(survival.RconAddress()).To(Equal("localhost:25576"))
		})
	})

	Describe("Validate", func() {
		var cfg config.FleetConfig

		BeforeEach(func() {
			parsed, err := config.Parse([]byte(validYaml))
			Expect(err).ToNot(HaveOccurred())
			cfg = parsed
		})

		It("should accept the valid fleet", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject an empty fleet", func() {
			cfg.Servers = nil
			Expect(cfg.Validate()).To(MatchError(config.ErrNoServers))
		})

		It("should reject duplicate server ids", func() {
			cfg.Servers = append(cfg.Servers, cfg.Servers[0])
			Expect(cfg.Validate()).To(MatchError(config.ErrDuplicateServerID))
		})

		It("should reject a console server without a port", func() {
			cfg.Servers[1].RconPort = 0
			Expect(cfg.Validate()).To(MatchError(config.ErrInvalidRconPort))
		})

		It("should reject a server without a unit", func() {
			cfg.Servers[2].Unit = ""
			Expect(cfg.Validate()).To(MatchError(config.ErrMissingUnit))
		})

		It("should reject a missing fallback id", func() {
			cfg.FallbackServerID = ""
			Expect(cfg.Validate()).To(MatchError(config.ErrNoFallbackServer))
		})

		It("should reject an unknown fallback id", func() {
			cfg.FallbackServerID = "skyblock"
			Expect(cfg.Validate()).To(MatchError(config.ErrUnknownFallbackServer))
		})

		It("should reject a fallback without console credentials", func() {
			cfg.FallbackServerID = "proxy"
			Expect(cfg.Validate()).To(MatchError(config.ErrFallbackWithoutConsole))
		})
	})

	Describe("HasConsole", func() {
		It("should report false for a descriptor without a password", func() {
			desc := config.ServerDescriptor{ID: "proxy"}
			Expect(desc.HasConsole()).To(BeFalse())
		})
	})
})
