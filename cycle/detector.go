// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package cycle

import (
	"fmt"
	"time"

	"github.com/Caisho/smartthings-api-extractor/trigger"
)

// OutOfOrderError reports a non-monotonic timestamp reaching the
// detector. The normalizer guarantees ascending order, so this is a
// programming-contract violation upstream, not a data problem the
// detector should paper over by reordering.
type OutOfOrderError struct {
	// Previous is the last timestamp the detector accepted.
	Previous time.Time
	// Current is the offending earlier timestamp.
	Current time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("cycle: event at %s arrived after event at %s; normalized input must be non-decreasing in time",
		e.Current.Format(time.RFC3339), e.Previous.Format(time.RFC3339))
}

// Result is the detector's output: the cycle sequence in the order
// cycles opened, plus counters that make discarded signals observable.
type Result struct {
	Cycles []Cycle

	// DuplicateStarts counts start triggers that fired while a cycle
	// was already running. The earliest start is authoritative; the
	// repeats are noise, not restarts.
	DuplicateStarts int

	// Ignored counts events dropped by the rule set's ignore patterns
	// before state evaluation.
	Ignored int
}

// detectorState is the two-state machine the event stream drives.
type detectorState int

const (
	stateIdle detectorState = iota
	stateRunning
)

// Detect runs the cycle state machine over the normalized event
// sequence. A start trigger in Idle opens a cycle; an end trigger in
// Running closes it with a computed duration; a stream that ends while
// Running emits the open cycle as incomplete. Events matching neither
// trigger kind (sensor readings, unrelated attributes) pass through
// without touching the machine.
//
// Detect fails fast on contract violations: timestamps must be
// non-decreasing, and a closing event must belong to the same device
// as the cycle it closes.
func Detect(events []Event, rules trigger.Set) (Result, error) {
	var result Result
	state := stateIdle
	var open Event
	var lastSeen time.Time

	for _, event := range events {
		if !lastSeen.IsZero() && event.Time.Before(lastSeen) {
			return Result{}, &OutOfOrderError{Previous: lastSeen, Current: event.Time}
		}
		lastSeen = event.Time

		if rules.IsIgnored(event.Capability, event.Attribute, event.Value) {
			result.Ignored++
			continue
		}

		switch state {
		case stateIdle:
			if rules.IsStart(event.Capability, event.Attribute, event.Value) {
				open = event
				state = stateRunning
			}

		case stateRunning:
			switch {
			case rules.IsEnd(event.Capability, event.Attribute, event.Value):
				if event.DeviceID != open.DeviceID {
					return Result{}, fmt.Errorf("cycle: end event device %q does not match start event device %q",
						event.DeviceID, open.DeviceID)
				}
				end := event
				result.Cycles = append(result.Cycles, Cycle{
					Start:    open,
					End:      &end,
					Duration: end.Time.Sub(open.Time),
					Status:   StatusComplete,
				})
				state = stateIdle

			case rules.IsStart(event.Capability, event.Attribute, event.Value):
				// Earliest start wins; the repeat is discarded.
				result.DuplicateStarts++
			}
		}
	}

	if state == stateRunning {
		result.Cycles = append(result.Cycles, Cycle{
			Start:  open,
			Status: StatusIncomplete,
		})
	}

	return result, nil
}
