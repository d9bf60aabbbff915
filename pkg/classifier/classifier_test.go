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

package classifier_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netherwatch/netherwatch-core/pkg/classifier"
	"github.com/netherwatch/netherwatch-core/pkg/models"
)

func intPtr(v int) *int {
	return &v
}

var _ = Describe("Classify", func() {
	Context("with an out-of-memory crash", func() {
		var input classifier.Input

		BeforeEach(func() {
			input = classifier.Input{
				RecentLines: []string{
					"[12:00:01] [Server thread/INFO]: Saving chunks",
					"[12:00:02] [Server thread/ERROR]: java.lang.OutOfMemoryError: Java heap space",
					"\tat net.minecraft.server.level.ServerLevel.tick(ServerLevel.java:312)",
					"\tat net.minecraft.server.MinecraftServer.tickServer(MinecraftServer.java:915)",
				},
				ExitCode:   intPtr(137),
				Unexpected: true,
			}
		})

		It("should report a critical memory crash", func() {
			verdict := classifier.Classify(input)
			Expect(verdict.IsCrash).To(BeTrue())
			Expect(verdict.Severity).To(Equal(models.SeverityCritical))
			Expect(verdict.Category).To(Equal(models.CategoryMemory))
		})

		It("should carry the matched line as evidence", func() {
			verdict := classifier.Classify(input)
			Expect(verdict.Evidence).To(ContainElement(ContainSubstring("OutOfMemoryError")))
		})

		It("should append stack frames after the matched header", func() {
			verdict := classifier.Classify(input)
			Expect(verdict.Evidence).To(ContainElement(ContainSubstring("at net.minecraft.server.level.ServerLevel.tick")))
		})

		It("should be deterministic", func() {
			first := classifier.Classify(input)
			second := classifier.Classify(input)
			Expect(second).To(Equal(first))
			Expect(second.Fingerprint).To(Equal(first.Fingerprint))
		})
	})

	Context("with an expected shutdown", func() {
		It("should return a negative verdict for a clean stop", func() {
			verdict := classifier.Classify(classifier.Input{
				RecentLines: []string{
					"[12:00:01] [Server thread/INFO]: Stopping server",
					"[12:00:02] [Server thread/INFO]: Saving worlds",
				},
				ExitCode:   intPtr(0),
				Unexpected: false,
			})
			Expect(verdict.IsCrash).To(BeFalse())
			Expect(verdict.Fingerprint).To(BeZero())
		})

		It("should ignore exit code 1", func() {
			verdict := classifier.Classify(classifier.Input{
				RecentLines: []string{"[12:00:01] [Server thread/INFO]: Stopping server"},
				ExitCode:    intPtr(1),
			})
			Expect(verdict.IsCrash).To(BeFalse())
		})
	})

	Context("with exit code evidence only", func() {
		It("should classify SIGKILL as critical memory", func() {
			verdict := classifier.Classify(classifier.Input{
				ExitCode:   intPtr(137),
				Unexpected: true,
			})
			Expect(verdict.IsCrash).To(BeTrue())
			Expect(verdict.Severity).To(Equal(models.SeverityCritical))
			Expect(verdict.Category).To(Equal(models.CategoryMemory))
		})

		It("should classify a negated signal the same as its wait status", func() {
			bySignal := classifier.Classify(classifier.Input{ExitCode: intPtr(-9), Unexpected: true})
			byStatus := classifier.Classify(classifier.Input{ExitCode: intPtr(137), Unexpected: true})
			Expect(bySignal.Severity).To(Equal(byStatus.Severity))
			Expect(bySignal.Category).To(Equal(byStatus.Category))
		})

		It("should classify an unknown positive code as moderate", func() {
			verdict := classifier.Classify(classifier.Input{ExitCode: intPtr(42), Unexpected: true})
			Expect(verdict.IsCrash).To(BeTrue())
			Expect(verdict.Severity).To(Equal(models.SeverityModerate))
			Expect(verdict.Reason).To(ContainSubstring("42"))
		})

		It("should not downgrade a stronger pattern match", func() {
			verdict := classifier.Classify(classifier.Input{
				RecentLines: []string{"[12:00:02] [Server thread/ERROR]: java.lang.OutOfMemoryError: Java heap space"},
				ExitCode:    intPtr(143),
				Unexpected:  true,
			})
			Expect(verdict.Severity).To(Equal(models.SeverityCritical))
			Expect(verdict.Category).To(Equal(models.CategoryMemory))
		})
	})

	Context("with tier precedence", func() {
		It("should let a critical match win over lower tiers", func() {
			verdict := classifier.Classify(classifier.Input{
				RecentLines: []string{
					"[12:00:01] [Server thread/WARN]: Can't keep up! Is the server overloaded?",
					"[12:00:02] [Server thread/ERROR]: A single server tick took 60.00 seconds (should be max 0.05)",
				},
				Unexpected: true,
			})
			Expect(verdict.Severity).To(Equal(models.SeverityCritical))
			Expect(verdict.Category).To(Equal(models.CategoryPerformance))
		})

		It("should classify bare error lines as low severity", func() {
			verdict := classifier.Classify(classifier.Input{
				RecentLines: []string{"[12:00:01] [Server thread/ERROR]: something odd happened"},
				Unexpected:  true,
			})
			Expect(verdict.IsCrash).To(BeTrue())
			Expect(verdict.Severity).To(Equal(models.SeverityLow))
			Expect(verdict.Category).To(Equal(models.CategoryUnknown))
		})
	})

	Context("with gradual degradation", func() {
		lines := []string{
			"[12:00:01] [Server thread/WARN]: Running 3000ms or 60 ticks behind, skipping 59 tick(s)",
		}

		It("should produce a moderate verdict on an unexpected shutdown", func() {
			verdict := classifier.Classify(classifier.Input{RecentLines: lines, Unexpected: true})
			Expect(verdict.IsCrash).To(BeTrue())
			Expect(verdict.Severity).To(Equal(models.SeverityModerate))
			Expect(verdict.Category).To(Equal(models.CategoryPerformance))
		})

		It("should stay quiet on an expected shutdown", func() {
			verdict := classifier.Classify(classifier.Input{RecentLines: lines, Unexpected: false})
			Expect(verdict.IsCrash).To(BeFalse())
		})
	})

	Context("with a noisy crash loop", func() {
		It("should cap the evidence", func() {
			lines := make([]string, 0, 50)
			for i := 0; i < 50; i++ {
				lines = append(lines, "[12:00:01] [Server thread/ERROR]: java.lang.OutOfMemoryError: Java heap space")
			}

			verdict := classifier.Classify(classifier.Input{RecentLines: lines, Unexpected: true})
			Expect(len(verdict.Evidence)).To(BeNumerically("<=", 20))
		})
	})

	Context("with an empty window", func() {
		It("should return a negative verdict without exit information", func() {
			verdict := classifier.Classify(classifier.Input{Unexpected: true})
			Expect(verdict.IsCrash).To(BeFalse())
		})
	})
})
