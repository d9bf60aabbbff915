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

package filesystem_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netherwatch/netherwatch-core/pkg/service/filesystem"
)

var _ = Describe("DefaultService", func() {
	var (
		ctx     context.Context
		service *filesystem.DefaultService
		tempDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		service = filesystem.NewDefaultService()
		tempDir = GinkgoT().TempDir()
	})

	writeFile := func(name string, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	Describe("ReadFileTail", func() {
		It("should return the trailing lines", func() {
			path := writeFile("latest.log", "one\ntwo\nthree\nfour\n")

			lines, err := service.ReadFileTail(ctx, path, 2)
			Expect(err).ToNot(HaveOccurred())
			Expect(lines).To(Equal([]string{"three", "four"}))
		})

		It("should return all lines when the file is shorter than the limit", func() {
			path := writeFile("latest.log", "one\ntwo\n")

			lines, err := service.ReadFileTail(ctx, path, 200)
			Expect(err).ToNot(HaveOccurred())
			Expect(lines).To(Equal([]string{"one", "two"}))
		})

		It("should handle a file without a trailing newline", func() {
			path := writeFile("latest.log", "one\ntwo")

			lines, err := service.ReadFileTail(ctx, path, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(lines).To(Equal([]string{"one", "two"}))
		})

		It("should fail for a missing file", func() {
			_, err := service.ReadFileTail(ctx, filepath.Join(tempDir, "missing.log"), 10)
			Expect(err).To(HaveOccurred())
		})

		It("should respect a cancelled context", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := service.ReadFileTail(cancelled, filepath.Join(tempDir, "latest.log"), 10)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("PathExists", func() {
		It("should report existing and missing paths", func() {
			path := writeFile("latest.log", "x")

			exists, err := service.PathExists(ctx, path)
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = service.PathExists(ctx, filepath.Join(tempDir, "missing.log"))
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("ExecuteCommand", func() {
		It("should return the combined output", func() {
			output, err := service.ExecuteCommand(ctx, "echo", "hello")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(output)).To(Equal("hello\n"))
		})

		It("should wrap the error for a failing command", func() {
			_, err := service.ExecuteCommand(ctx, "false")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("MockFileSystem", func() {
	var (
		ctx  context.Context
		mock *filesystem.MockFileSystem
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = filesystem.NewMockFileSystem()
	})

	It("should serve seeded files", func() {
		mock.WithFile("/srv/mc/hub/latest.log", []byte("one\ntwo\n"))

		lines, err := mock.ReadFileTail(ctx, "/srv/mc/hub/latest.log", 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(lines).To(Equal([]string{"two"}))

		_, err = mock.ReadFileTail(ctx, "/srv/mc/hub/missing.log", 1)
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("should record executed commands", func() {
		_, err := mock.ExecuteCommand(ctx, "systemctl", "show", "mc-hub.service")
		Expect(err).ToNot(HaveOccurred())
		Expect(mock.ExecutedCommands).To(HaveLen(1))
		Expect(mock.ExecutedCommands[0]).To(Equal([]string{"systemctl", "show", "mc-hub.service"}))
	})

	It("should prefer the override functions", func() {
		mock.ReadFileTailFunc = func(_ context.Context, _ string, _ int) ([]string, error) {
			return []string{"override"}, nil
		}

		lines, err := mock.ReadFileTail(ctx, "/anything", 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(lines).To(Equal([]string{"override"}))
	})
})
