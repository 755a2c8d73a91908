// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package trigger provides parsing and validation for cycle trigger
// rule sets. A rule set names the event patterns that open a cycle
// (start), close it (end), and the noise patterns the detector must
// skip entirely (ignore).
//
// Rule sets are authored on disk as JSONC files (JSON extended with
// comments and trailing commas) so that per-device rule files can
// document why a pattern is listed. The built-in default set encodes
// the dryer semantics the extractor was originally written for.
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Match describes one event pattern. An event matches when its
// capability, attribute, and value all equal the pattern's fields. An
// empty Value acts as a wildcard (any value of that attribute); this
// is only permitted in ignore patterns, where "every paused-state
// event" is a useful rule. Start and end patterns must name the
// exact transition value.
type Match struct {
	Capability string `json:"capability"`
	Attribute  string `json:"attribute"`
	Value      string `json:"value,omitempty"`
}

// Matches reports whether an event with the given capability,
// attribute, and value fits this pattern.
func (m Match) Matches(capability, attribute, value string) bool {
	if m.Capability != capability || m.Attribute != attribute {
		return false
	}
	return m.Value == "" || m.Value == value
}

func (m Match) String() string {
	if m.Value == "" {
		return m.Capability + "/" + m.Attribute + "=*"
	}
	return m.Capability + "/" + m.Attribute + "=" + m.Value
}

// Set is a complete trigger rule set for one device class.
type Set struct {
	// Name labels the rule set in logs and the run summary.
	Name string `json:"name"`

	// Start patterns open a cycle when matched in the Idle state.
	Start []Match `json:"start"`

	// End patterns close the open cycle when matched in the Running
	// state.
	End []Match `json:"end"`

	// Ignore patterns are dropped before state evaluation. Events
	// matching an ignore pattern never open, close, or perturb a
	// cycle.
	Ignore []Match `json:"ignore,omitempty"`
}

// Default returns the built-in dryer rule set: a cycle starts at
// power-on or when the machine state enters "run", whichever the
// history reports first; it ends when the appliance powers off.
// Pause/resume churn is ignored so that a paused load still reads as
// one cycle.
func Default() Set {
	return Set{
		Name: "dryer",
		Start: []Match{
			{Capability: "switch", Attribute: "switch", Value: "on"},
			{Capability: "dryerOperatingState", Attribute: "machineState", Value: "run"},
		},
		End: []Match{
			{Capability: "switch", Attribute: "switch", Value: "off"},
		},
		Ignore: []Match{
			{Capability: "dryerOperatingState", Attribute: "machineState", Value: "pause"},
		},
	}
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Set. The caller should Validate the
// result before use.
func Parse(data []byte) (Set, error) {
	stripped := jsonc.ToJSON(data)

	var set Set
	if err := json.Unmarshal(stripped, &set); err != nil {
		return Set{}, fmt.Errorf("trigger: parsing rule set: %w", err)
	}
	return set, nil
}

// ReadFile reads a JSONC rule file from disk, parses, and validates
// it.
func ReadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("trigger: reading %s: %w", path, err)
	}

	set, err := Parse(data)
	if err != nil {
		return Set{}, fmt.Errorf("trigger: %s: %w", path, err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, fmt.Errorf("trigger: %s: %w", path, err)
	}
	return set, nil
}

// Validate checks the rule set for structural errors. Every problem is
// reported at once.
func (s Set) Validate() error {
	var errs []error

	if len(s.Start) == 0 {
		errs = append(errs, fmt.Errorf("at least one start pattern is required"))
	}
	if len(s.End) == 0 {
		errs = append(errs, fmt.Errorf("at least one end pattern is required"))
	}

	checkExact := func(kind string, matches []Match) {
		for i, m := range matches {
			if m.Capability == "" || m.Attribute == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: capability and attribute are required", kind, i))
			}
			if m.Value == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: value is required (wildcards are only allowed in ignore patterns)", kind, i))
			}
		}
	}
	checkExact("start", s.Start)
	checkExact("end", s.End)

	for i, m := range s.Ignore {
		if m.Capability == "" || m.Attribute == "" {
			errs = append(errs, fmt.Errorf("ignore[%d]: capability and attribute are required", i))
		}
	}

	// The same exact pattern in both start and end would make every
	// matching event simultaneously open and close a cycle.
	for _, start := range s.Start {
		for _, end := range s.End {
			if start == end {
				errs = append(errs, fmt.Errorf("pattern %s appears in both start and end", start))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsStart reports whether the event matches any start pattern.
func (s Set) IsStart(capability, attribute, value string) bool {
	return anyMatch(s.Start, capability, attribute, value)
}

// IsEnd reports whether the event matches any end pattern.
func (s Set) IsEnd(capability, attribute, value string) bool {
	return anyMatch(s.End, capability, attribute, value)
}

// IsIgnored reports whether the event matches any ignore pattern.
func (s Set) IsIgnored(capability, attribute, value string) bool {
	return anyMatch(s.Ignore, capability, attribute, value)
}

func anyMatch(matches []Match, capability, attribute, value string) bool {
	for _, m := range matches {
		if m.Matches(capability, attribute, value) {
			return true
		}
	}
	return false
}
