// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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
	"strings"
)

// Verdict is the binary result of a validation run.
type Verdict string

const (
	VerdictSuccess Verdict = "success"
	VerdictFailure Verdict = "failure"
)

// Outcome is the classification of a validation log.
type Outcome struct {
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Details is the failure description plus the matching log line, or the
	// full log for a success.
	Details string `json:"details" yaml:"details"`

	// Signature is the name of the matched failure signature.
	Signature string `json:"signature,omitempty" yaml:"signature,omitempty"`

	// Evidence lists success markers seen in the log. Informational only.
	Evidence []string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// Succeeded reports whether the outcome permits promotion.
func (o Outcome) Succeeded() bool {
	return o.Verdict == VerdictSuccess
}

// Signature is a known failure pattern in a validation log.
type Signature struct {
	Name        string
	Match       string
	Description string
}

// DefaultSignatures are checked in order; the first match wins.
var DefaultSignatures = []Signature{
	{
		Name:        "undefined_variable",
		Match:       "NameError: name 'undefined_variable' is not defined",
		Description: "Script contains an undefined variable 'undefined_variable'",
	},
	{
		Name:        "name_error",
		Match:       "NameError:",
		Description: "Script references an undefined name",
	},
	{
		Name:        "syntax_error",
		Match:       "SyntaxError:",
		Description: "Script contains a syntax error",
	},
	{
		Name:        "unhandled_exception",
		Match:       "Traceback (most recent call last):",
		Description: "Script raised an unhandled exception",
	},
}

// DefaultSuccessMarkers are reported as evidence when present.
var DefaultSuccessMarkers = []string{"Hello, World!", "PASSED"}

// Classifier maps raw logs to outcomes using ordered signatures.
type Classifier struct {
	signatures []Signature
	markers    []string
}

// New returns a Classifier. Nil arguments select the defaults.
func New(signatures []Signature, markers []string) *Classifier {
	if signatures == nil {
		signatures = DefaultSignatures
	}
	if markers == nil {
		markers = DefaultSuccessMarkers
	}
	return &Classifier{signatures: signatures, markers: markers}
}

// Default is the classifier built from DefaultSignatures and DefaultSuccessMarkers.
var Default = New(nil, nil)

// Classify is Default.Classify.
func Classify(log string) Outcome {
	return Default.Classify(log)
}

// Classify is total and has no side effects.
func (c *Classifier) Classify(log string) Outcome {
	for _, sig := range c.signatures {
		if sig.Match == "" || !strings.Contains(log, sig.Match) {
			continue
		}
		return Outcome{
			Verdict:   VerdictFailure,
			Details:   sig.Description + ": " + matchingLine(log, sig.Match),
			Signature: sig.Name,
		}
	}

	var evidence []string
	for _, m := range c.markers {
		if m != "" && strings.Contains(log, m) {
			evidence = append(evidence, m)
		}
	}

	return Outcome{
		Verdict:  VerdictSuccess,
		Details:  log,
		Evidence: evidence,
	}
}

// matchingLine returns the trimmed log line containing match.
// The caller guarantees match occurs in log.
func matchingLine(log, match string) string {
	for _, line := range strings.Split(log, "\n") {
		if strings.Contains(line, match) {
			return strings.TrimSpace(line)
		}
	}
	// match spans lines
	return match
}
