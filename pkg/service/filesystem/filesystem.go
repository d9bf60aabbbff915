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

package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/netherwatch/netherwatch-core/pkg/metrics"
)

// tailReadChunk bounds how many bytes ReadFileTail pulls from the end of a
// log file. 256 KiB comfortably covers 200 lines of JVM output.
const tailReadChunk = 256 * 1024

// DefaultService is the default implementation of the filesystem Service.
type DefaultService struct{}

// NewDefaultService creates a new DefaultService.
func NewDefaultService() *DefaultService {
	return &DefaultService{}
}

// checkContext checks if the context is done before proceeding with an operation.
func (s *DefaultService) checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// recordOp records filesystem operation metrics.
func (s *DefaultService) recordOp(op string, start time.Time) {
	metrics.ObserveOperationTime(metrics.ComponentFilesystem, op, time.Since(start))
}

// ReadFileTail returns up to maxLines trailing lines of the file. Only the
// last tailReadChunk bytes are read; a partial first line caused by the
// chunked read is discarded.
func (s *DefaultService) ReadFileTail(ctx context.Context, path string, maxLines int) ([]string, error) {
	start := time.Now()
	defer s.recordOp("readFileTail", start)

	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	offset := info.Size() - tailReadChunk
	truncatedHead := offset > 0

	if offset < 0 {
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek in file %s: %w", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	// The first line of a mid-file read is almost always cut in half.
	if truncatedHead && len(lines) > 0 {
		lines = lines[1:]
	}

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	return lines, nil
}

// PathExists checks if a file or directory exists at the given path.
func (s *DefaultService) PathExists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	defer s.recordOp("pathExists", start)

	if err := s.checkContext(ctx); err != nil {
		return false, err
	}

	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat path %s: %w", path, err)
}

// ExecuteCommand executes a command with context. The combined output is
// returned even on failure so callers can log what the command printed.
func (s *DefaultService) ExecuteCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	defer s.recordOp("executeCommand", start)

	if err := s.checkContext(ctx); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, name, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("failed to execute command %s: %w", name, err)
	}

	return output, nil
}
