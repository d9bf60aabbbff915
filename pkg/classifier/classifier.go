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

// Package classifier turns a window of trailing log lines plus optional
// process exit information into a crash verdict. Classification is a pure
// function over static, ordered rule tables: the same input always yields
// the same verdict, and the tables can be extended without touching the
// scan loop.
package classifier

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/netherwatch/netherwatch-core/pkg/models"
)

// maxEvidenceLines bounds the evidence attached to a verdict so a noisy
// crash loop cannot blow up report sizes.
const maxEvidenceLines = 20

// maxStackFrames is how many frames of a detected stack trace are appended
// as additional evidence.
const maxStackFrames = 5

// Input is everything the classifier may consider for one
// abnormal-transition event.
type Input struct {
	// RecentLines is the trailing log window at the moment of the event.
	// An empty window is valid: classification then degrades to the exit
	// code alone.
	RecentLines []string
	// ExitCode is the supervisor-reported exit information, if any.
	ExitCode *int
	// Unexpected is true when the transition out of online was not
	// preceded by a supervisor-reported stop.
	Unexpected bool
}

// Classify maps the input onto a verdict. The steps, in order:
//
//  1. scan the ordered severity tiers; the highest-severity match decides
//     severity and category, every match becomes evidence
//  2. scan for an exception header with contiguous stack frames; frames
//     are appended as evidence when step 1 matched
//  3. look up a non-{0,1} exit code in the fixed table; this can carry a
//     positive verdict on its own
//  4. with no direct match but an unexpected transition, run the
//     gradual-degradation pass
//  5. nothing at all on an expected shutdown is a negative verdict
func Classify(input Input) models.Verdict {
	verdict := models.Verdict{}

	scanTiers(input.RecentLines, &verdict)
	appendStackFrames(input.RecentLines, &verdict)
	applyExitCode(input.ExitCode, &verdict)

	if !verdict.IsCrash && input.Unexpected {
		scanDegradation(input.RecentLines, &verdict)
	}

	if verdict.IsCrash {
		verdict.Fingerprint = fingerprint(verdict.Evidence, verdict.Reason)
	}

	return verdict
}

// scanTiers runs step 1. Tiers are walked highest severity first, so the
// first rule that matches anything decides the verdict; all further
// matches only contribute evidence.
func scanTiers(lines []string, verdict *models.Verdict) {
	for _, tier := range tiers {
		for _, rule := range tier.rules {
			for _, line := range lines {
				if !rule.pattern.MatchString(line) {
					continue
				}

				if !verdict.IsCrash {
					verdict.IsCrash = true
					verdict.Severity = tier.severity
					verdict.Category = rule.category
					verdict.Reason = rule.reason
				}

				if len(verdict.Evidence) < maxEvidenceLines {
					verdict.Evidence = append(verdict.Evidence, line)
				}
			}
		}
	}
}

// appendStackFrames runs step 2: it looks for the first exception header
// followed by contiguous frame lines and, when step 1 already produced a
// positive verdict, appends the leading frames as extra evidence.
func appendStackFrames(lines []string, verdict *models.Verdict) {
	if !verdict.IsCrash {
		return
	}

	for i, line := range lines {
		if !stackHeaderPattern.MatchString(line) {
			continue
		}

		var frames []string

		for j := i + 1; j < len(lines) && stackFramePattern.MatchString(lines[j]); j++ {
			frames = append(frames, strings.TrimSpace(lines[j]))
			if len(frames) == maxStackFrames {
				break
			}
		}

		if len(frames) == 0 {
			continue
		}

		for _, frame := range frames {
			if len(verdict.Evidence) < maxEvidenceLines {
				verdict.Evidence = append(verdict.Evidence, frame)
			}
		}

		return
	}
}

// applyExitCode runs step 3. A tabled exit code can upgrade the verdict's
// severity or establish a crash on its own; it never downgrades a stronger
// pattern match.
func applyExitCode(exitCode *int, verdict *models.Verdict) {
	if exitCode == nil {
		return
	}

	code := *exitCode
	if code == 0 || code == 1 {
		return
	}

	entry, ok := exitCodes[code]
	if !ok {
		entry = unknownExitCode

		if code < 0 {
			entry.reason = fmt.Sprintf("process killed by signal %d", -code)
		} else {
			entry.reason = fmt.Sprintf("process exited with unexpected code %d", code)
		}
	}

	if !verdict.IsCrash || entry.severity.Rank() > verdict.Severity.Rank() {
		verdict.Severity = entry.severity
		verdict.Category = entry.category
		verdict.Reason = entry.reason
	}

	verdict.IsCrash = true
}

// scanDegradation runs step 4, the secondary pass for unexpected
// shutdowns without any direct pattern hit.
func scanDegradation(lines []string, verdict *models.Verdict) {
	for _, rule := range degradationRules {
		for _, line := range lines {
			if !rule.pattern.MatchString(line) {
				continue
			}

			if !verdict.IsCrash {
				verdict.IsCrash = true
				verdict.Severity = models.SeverityModerate
				verdict.Category = rule.category
				verdict.Reason = rule.reason
			}

			if len(verdict.Evidence) < maxEvidenceLines {
				verdict.Evidence = append(verdict.Evidence, line)
			}
		}
	}
}

// fingerprint hashes the ordered evidence so telemetry can spot repeated
// identical failures without diffing whole reports.
func fingerprint(evidence []string, reason string) uint64 {
	digest := xxhash.New()

	_, _ = digest.WriteString(reason)

	for _, line := range evidence {
		_, _ = digest.WriteString("\n")
		_, _ = digest.WriteString(line)
	}

	return digest.Sum64()
}
