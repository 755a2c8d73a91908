// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package cycle turns the raw device history into normalized events,
// derives bounded operational cycles from them with a small state
// machine, and aggregates cycle duration statistics.
//
// The pipeline inside this package is strictly one-directional:
// Normalize produces the ordered event sequence, Detect consumes it
// and emits cycles, Summarize reduces the cycles to statistics. No
// step mutates its input.
package cycle

import "time"

// Event is one normalized, timezone-resolved state-change record.
// Events are value types and treated as immutable once constructed;
// downstream consumers only read them.
type Event struct {
	DeviceID     string    `json:"deviceId" cbor:"deviceId"`
	DeviceName   string    `json:"deviceName,omitempty" cbor:"deviceName,omitempty"`
	LocationID   string    `json:"locationId,omitempty" cbor:"locationId,omitempty"`
	LocationName string    `json:"locationName,omitempty" cbor:"locationName,omitempty"`
	Component    string    `json:"component,omitempty" cbor:"component,omitempty"`
	Capability   string    `json:"capability" cbor:"capability"`
	Attribute    string    `json:"attribute,omitempty" cbor:"attribute,omitempty"`
	Value        string    `json:"value" cbor:"value"`
	Unit         string    `json:"unit,omitempty" cbor:"unit,omitempty"`
	Text         string    `json:"text,omitempty" cbor:"text,omitempty"`
	Time         time.Time `json:"time" cbor:"time"`
}

// Status reports whether a cycle saw its end trigger.
type Status string

const (
	// StatusComplete marks a cycle closed by an end trigger.
	StatusComplete Status = "complete"
	// StatusIncomplete marks a cycle still open when the event
	// stream ended. Incomplete cycles carry no end event or duration
	// and are excluded from duration statistics.
	StatusIncomplete Status = "incomplete"
)

// Cycle is one bounded span of device activity.
type Cycle struct {
	// Start is the event that opened the cycle.
	Start Event
	// End is the event that closed the cycle; nil while incomplete.
	End *Event
	// Duration is End.Time - Start.Time; zero and meaningless when
	// the cycle is incomplete.
	Duration time.Duration
	// Status is StatusComplete or StatusIncomplete.
	Status Status
}

// Complete reports whether the cycle was closed by an end trigger.
func (c Cycle) Complete() bool { return c.Status == StatusComplete }
