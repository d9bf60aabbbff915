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

package logger_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netherwatch/netherwatch-core/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("should enable debug output at DEBUG", func() {
			log := logger.New("DEBUG", logger.FormatJSON)
			Expect(log.Check(zapcore.DebugLevel, "sampled message")).ToNot(BeNil())
		})

		It("should suppress info output at ERROR", func() {
			log := logger.New("ERROR", logger.FormatJSON)
			Expect(log.Check(zapcore.InfoLevel, "sampled message")).To(BeNil())
			Expect(log.Check(zapcore.ErrorLevel, "sampled message")).ToNot(BeNil())
		})

		It("should treat PRODUCTION as info", func() {
			log := logger.New("PRODUCTION", logger.FormatJSON)
			Expect(log.Check(zapcore.InfoLevel, "sampled message")).ToNot(BeNil())
			Expect(log.Check(zapcore.DebugLevel, "sampled message")).To(BeNil())
		})

		It("should default unknown levels to info", func() {
			log := logger.New("verbose", logger.FormatJSON)
			Expect(log.Check(zapcore.InfoLevel, "sampled message")).ToNot(BeNil())
			Expect(log.Check(zapcore.DebugLevel, "sampled message")).To(BeNil())
		})
	})

	Describe("SetLevel", func() {
		It("should replace the global logger at the requested level", func() {
			logger.SetLevel("DEBUG")
			Expect(zap.L().Check(zapcore.DebugLevel, "sampled message")).ToNot(BeNil())

			logger.SetLevel("WARN")
			Expect(zap.L().Check(zapcore.InfoLevel, "sampled message")).To(BeNil())
			Expect(zap.L().Check(zapcore.WarnLevel, "sampled message")).ToNot(BeNil())
		})
	})
})
