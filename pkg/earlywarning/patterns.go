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

package earlywarning

import (
	"regexp"

	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// phraseRule maps a log phrase onto a warning kind.
type phraseRule struct {
	pattern  *regexp.Regexp
	kind     models.WarningKind
	severity models.Severity
	message  string
}

// phraseRules are the degradation phrases worth warning about while the
// server is still up. They overlap with the crash classifier's secondary
// pass on purpose: what shows up here first may become crash evidence
// later.
var phraseRules = []phraseRule{
	{
		pattern:  regexp.MustCompile(`(?i)low (on )?memory|not enough (free )?memory|running out of memory`),
		kind:     models.WarningMemoryHigh,
		severity: models.SeverityHigh,
		message:  "server reports memory pressure",
	},
	{
		pattern:  regexp.MustCompile(`(?i)gc (pause|overhead|thrashing)|long garbage collection|GC overhead`),
		kind:     models.WarningGCPressure,
		severity: models.SeverityModerate,
		message:  "garbage-collection pressure in server log",
	},
	{
		pattern:  regexp.MustCompile(`Can't keep up! Is the server overloaded\?|(?i)running \d+ms or \d+ ticks behind`),
		kind:     models.WarningCPUHigh,
		severity: models.SeverityModerate,
		message:  "server falling behind on ticks",
	},
}

// errorLinePattern feeds the rolling error counter. Same shape the crash
// classifier uses for its lowest tier.
var errorLinePattern = regexp.MustCompile(`\[(?:[^\]]*/)?(?:ERROR|SEVERE|FATAL)\]`)
