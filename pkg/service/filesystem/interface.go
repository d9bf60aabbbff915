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
)

// Service provides an interface for the filesystem and external-command
// operations the fleet core needs: reading server logs and querying the
// process supervisor. This allows for easier testing and separation of
// concerns.
type Service interface {
	// ReadFileTail returns up to maxLines trailing lines of the file.
	// It reads a bounded byte range from the end instead of the whole
	// file, so large server logs stay cheap to sample.
	ReadFileTail(ctx context.Context, path string, maxLines int) ([]string, error)

	// PathExists checks if a file or directory exists at the given path
	PathExists(ctx context.Context, path string) (bool, error)

	// ExecuteCommand executes a command with context
	ExecuteCommand(ctx context.Context, name string, args ...string) ([]byte, error)
}
