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

package classifier

import (
	"regexp"

	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// patternRule is one entry of a severity tier: a compiled pattern plus the
// category and operator-facing reason it maps to.
type patternRule struct {
	pattern  *regexp.Regexp
	category models.Category
	reason   string
}

// severityTier groups the rules of one severity level. Tiers are scanned
// in declaration order, highest severity first, so the first tier with any
// match decides the verdict's severity.
type severityTier struct {
	severity models.Severity
	rules    []patternRule
}

// tiers is the static, ordered classification rule set. Keeping it as data
// rather than branching code makes the rules testable and extensible
// independent of the scan loop.
var tiers = []severityTier{
	{
		severity: models.SeverityCritical,
		rules: []patternRule{
			{
				pattern:  regexp.MustCompile(`java\.lang\.OutOfMemoryError`),
				category: models.CategoryMemory,
				reason:   "JVM ran out of memory",
			},
			{
				pattern:  regexp.MustCompile(`GC overhead limit exceeded`),
				category: models.CategoryMemory,
				reason:   "garbage collector exhausted, heap effectively full",
			},
			{
				pattern:  regexp.MustCompile(`(?i)unable to allocate`),
				category: models.CategoryMemory,
				reason:   "allocation failure",
			},
			{
				pattern:  regexp.MustCompile(`A fatal error has been detected by the Java Runtime Environment`),
				category: models.CategorySystem,
				reason:   "JVM fatal error (hs_err)",
			},
			{
				pattern:  regexp.MustCompile(`Considering it to be crashed, server will forcibly shutdown`),
				category: models.CategoryPerformance,
				reason:   "watchdog declared the server dead and forced a shutdown",
			},
			{
				pattern:  regexp.MustCompile(`A single server tick took \d+(\.\d+)? seconds`),
				category: models.CategoryPerformance,
				reason:   "single tick exceeded the watchdog limit",
			},
		},
	},
	{
		severity: models.SeverityHigh,
		rules: []patternRule{
			{
				pattern:  regexp.MustCompile(`java\.lang\.StackOverflowError`),
				category: models.CategorySystem,
				reason:   "stack overflow in server thread",
			},
			{
				pattern:  regexp.MustCompile(`Exception in server tick loop`),
				category: models.CategorySystem,
				reason:   "unhandled exception in the tick loop",
			},
			{
				pattern:  regexp.MustCompile(`(?i)failed to bind to port|address already in use`),
				category: models.CategoryNetwork,
				reason:   "server port could not be bound",
			},
			{
				pattern:  regexp.MustCompile(`(?i)chunk file at .* is (missing|corrupt)|corrupted chunk`),
				category: models.CategorySystem,
				reason:   "world data corruption detected",
			},
			{
				pattern:  regexp.MustCompile(`Failed to load level|Exception reading .*level\.dat`),
				category: models.CategorySystem,
				reason:   "level data could not be read",
			},
		},
	},
	{
		severity: models.SeverityModerate,
		rules: []patternRule{
			{
				pattern:  regexp.MustCompile(`Could not pass event .* to plugin|Error occurred while enabling`),
				category: models.CategoryPlugin,
				reason:   "plugin failure",
			},
			{
				pattern:  regexp.MustCompile(`(?i)mod .* has failed|error loading mod`),
				category: models.CategoryPlugin,
				reason:   "mod failure",
			},
			{
				pattern:  regexp.MustCompile(`Can't keep up! Is the server overloaded\?`),
				category: models.CategoryPerformance,
				reason:   "server falling behind on ticks",
			},
			{
				pattern:  regexp.MustCompile(`(?i)connection reset by peer|broken pipe`),
				category: models.CategoryNetwork,
				reason:   "network connection failure",
			},
		},
	},
	{
		severity: models.SeverityLow,
		rules: []patternRule{
			{
				pattern:  regexp.MustCompile(`\[(?:[^\]]*/)?(?:ERROR|SEVERE|FATAL)\]`),
				category: models.CategoryUnknown,
				reason:   "error-level log output before shutdown",
			},
		},
	},
}

// exitCodeEntry maps a process exit code to a verdict.
type exitCodeEntry struct {
	severity models.Severity
	category models.Category
	reason   string
}

// exitCodes is the fixed exit-code table. Codes 0 and 1 are never looked
// up: 0 is a clean exit and 1 is the JVM's generic error exit, which on
// its own says nothing. Negative codes are the "killed by signal N"
// convention used by the supervisor poller.
var exitCodes = map[int]exitCodeEntry{
	137: {models.SeverityCritical, models.CategoryMemory, "process killed (SIGKILL, likely OOM killer)"},
	-9:  {models.SeverityCritical, models.CategoryMemory, "process killed (SIGKILL, likely OOM killer)"},
	143: {models.SeverityModerate, models.CategorySystem, "process terminated (SIGTERM)"},
	-15: {models.SeverityModerate, models.CategorySystem, "process terminated (SIGTERM)"},
	134: {models.SeverityHigh, models.CategorySystem, "process aborted (SIGABRT)"},
	-6:  {models.SeverityHigh, models.CategorySystem, "process aborted (SIGABRT)"},
	139: {models.SeverityHigh, models.CategorySystem, "segmentation fault (SIGSEGV)"},
	-11: {models.SeverityHigh, models.CategorySystem, "segmentation fault (SIGSEGV)"},
}

// unknownExitCode is used for non-{0,1} codes absent from the table.
var unknownExitCode = exitCodeEntry{
	severity: models.SeverityModerate,
	category: models.CategorySystem,
	reason:   "process exited with unexpected code",
}

// degradationRule is one entry of the secondary gradual-degradation pass.
type degradationRule struct {
	pattern  *regexp.Regexp
	category models.Category
	reason   string
}

// degradationRules only run when no direct tier matched but the shutdown
// was unexpected. They pick up the slow-death phrasing that precedes many
// resource-exhaustion crashes without being crash lines themselves.
var degradationRules = []degradationRule{
	{
		pattern:  regexp.MustCompile(`(?i)running \d+ms or \d+ ticks behind`),
		category: models.CategoryPerformance,
		reason:   "sustained tick lag before shutdown",
	},
	{
		pattern:  regexp.MustCompile(`(?i)server overloaded|skipping \d+ tick`),
		category: models.CategoryPerformance,
		reason:   "performance degradation before shutdown",
	},
	{
		pattern:  regexp.MustCompile(`(?i)low (on )?memory|not enough (free )?memory`),
		category: models.CategoryMemory,
		reason:   "memory pressure before shutdown",
	},
	{
		pattern:  regexp.MustCompile(`(?i)gc (pause|overhead|thrashing)|long garbage collection`),
		category: models.CategoryMemory,
		reason:   "garbage-collection pressure before shutdown",
	},
}

// Stack-trace shapes: a JVM exception header followed by contiguous
// indented frame lines.
var (
	stackHeaderPattern = regexp.MustCompile(`^(?:.*\s)?(?:[\w$]+\.)+[\w$]*(?:Exception|Error)(?::.*)?$`)
	stackFramePattern  = regexp.MustCompile(`^\s+at\s+\S+`)
)
