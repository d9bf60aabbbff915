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

package console

import "strings"

// networkCommands are the verbs that operate on network-wide state
// (bans, whitelist, operator lists, cross-server chat). They are executed
// on the hub server regardless of which server the caller addressed,
// because that is where the authoritative lists live.
var networkCommands = map[string]struct{}{
	"ban":       {},
	"ban-ip":    {},
	"banlist":   {},
	"pardon":    {},
	"pardon-ip": {},
	"kick":      {},
	"list":      {},
	"whitelist": {},
	"op":        {},
	"deop":      {},
	"say":       {},
	"tell":      {},
	"msg":       {},
	"find":      {},
	"alert":     {},
	"send":      {},
}

// ResolveTarget decides which server a command actually runs on. Pure
// string work, no I/O: network-wide verbs route to the fallback id, all
// other commands stay on the requested server. A request already addressed
// to the fallback is returned unchanged so routing can never loop.
func ResolveTarget(requestedID string, fallbackID string, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return requestedID
	}

	verb := strings.ToLower(strings.TrimPrefix(fields[0], "/"))

	if _, ok := networkCommands[verb]; !ok {
		return requestedID
	}

	if requestedID == fallbackID {
		return requestedID
	}

	return fallbackID
}
