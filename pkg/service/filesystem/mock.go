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
	"os"
	"strings"
	"sync"
)

// MockFileSystem is a mock implementation of the filesystem.Service
// interface. Behavior can be overridden per call via the *Func fields;
// otherwise files are served from the in-memory Files map.
type MockFileSystem struct {
	// Files maps path to content for the default implementations.
	Files map[string][]byte

	ReadFileTailFunc   func(ctx context.Context, path string, maxLines int) ([]string, error)
	PathExistsFunc     func(ctx context.Context, path string) (bool, error)
	ExecuteCommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// ExecutedCommands records every ExecuteCommand invocation.
	ExecutedCommands [][]string

	mutex sync.Mutex
}

// NewMockFileSystem creates a new MockFileSystem instance.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files: make(map[string][]byte),
	}
}

// WithFile seeds the in-memory filesystem.
func (m *MockFileSystem) WithFile(path string, content []byte) *MockFileSystem {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Files[path] = content

	return m
}

// ReadFileTail returns up to maxLines trailing lines of the file.
func (m *MockFileSystem) ReadFileTail(ctx context.Context, path string, maxLines int) ([]string, error) {
	if m.ReadFileTailFunc != nil {
		return m.ReadFileTailFunc(ctx, path, maxLines)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	content, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("file %s does not exist: %w", path, os.ErrNotExist)
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	return lines, nil
}

// PathExists checks if a file or directory exists at the given path.
func (m *MockFileSystem) PathExists(ctx context.Context, path string) (bool, error) {
	if m.PathExistsFunc != nil {
		return m.PathExistsFunc(ctx, path)
	}

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.Files[path]

	return ok, nil
}

// ExecuteCommand executes a command with context.
func (m *MockFileSystem) ExecuteCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mutex.Lock()
	m.ExecutedCommands = append(m.ExecutedCommands, append([]string{name}, args...))
	m.mutex.Unlock()

	if m.ExecuteCommandFunc != nil {
		return m.ExecuteCommandFunc(ctx, name, args...)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return nil, nil
}
