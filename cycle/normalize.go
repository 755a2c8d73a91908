// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package cycle

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Caisho/smartthings-api-extractor/smartthings"
)

// NormalizeResult carries the canonical event sequence plus counts of
// the records that did not make it in. The counts are reported, never
// fatal: a device's history routinely contains a few records the API
// returned without a value or timestamp.
type NormalizeResult struct {
	// Events is sorted ascending by Time; ties preserve first-seen
	// (page-arrival) order.
	Events []Event

	// Dropped counts records missing a required field (timestamp,
	// capability, or value) or carrying an unparseable timestamp.
	Dropped int

	// Duplicates counts records removed by identity dedup. Pagination
	// boundaries can return the same record on two adjacent pages.
	Duplicates int
}

// eventIdentity is the dedup key: two records with the same identity
// are the same observation regardless of which page delivered them.
type eventIdentity struct {
	deviceID   string
	capability string
	attribute  string
	value      string
	unixMilli  int64
}

// Normalize projects raw history records into the canonical Event
// shape: required fields enforced, timestamps resolved to location,
// duplicates removed, and the result stably sorted by time. The
// location must already be validated (config does this before any
// fetch), so Normalize itself cannot fail.
func Normalize(records []smartthings.RawEvent, location *time.Location) NormalizeResult {
	result := NormalizeResult{
		Events: make([]Event, 0, len(records)),
	}
	seen := make(map[eventIdentity]struct{}, len(records))

	for _, record := range records {
		timestamp, ok := recordTime(record, location)
		if !ok || record.Capability == "" {
			result.Dropped++
			continue
		}
		value, ok := valueString(record.Value)
		if !ok {
			result.Dropped++
			continue
		}

		identity := eventIdentity{
			deviceID:   record.DeviceID,
			capability: record.Capability,
			attribute:  record.Attribute,
			value:      value,
			unixMilli:  timestamp.UnixMilli(),
		}
		if _, dup := seen[identity]; dup {
			result.Duplicates++
			continue
		}
		seen[identity] = struct{}{}

		result.Events = append(result.Events, Event{
			DeviceID:     record.DeviceID,
			DeviceName:   record.DeviceName,
			LocationID:   record.LocationID,
			LocationName: record.LocationName,
			Component:    record.Component,
			Capability:   record.Capability,
			Attribute:    record.Attribute,
			Value:        value,
			Unit:         record.Unit,
			Text:         record.Text,
			Time:         timestamp,
		})
	}

	// Stable: equal timestamps keep page-arrival order, which is the
	// tie-break the detector's contract depends on.
	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Time.Before(result.Events[j].Time)
	})

	return result
}

// recordTime resolves the record's instant into location. Epoch
// milliseconds are authoritative when present; otherwise the RFC3339
// string is parsed. Reports false for a record with no usable
// timestamp.
func recordTime(record smartthings.RawEvent, location *time.Location) (time.Time, bool) {
	if record.Epoch > 0 {
		return time.UnixMilli(record.Epoch).In(location), true
	}
	if record.Time == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, record.Time); err == nil {
			return parsed.In(location), true
		}
	}
	return time.Time{}, false
}

// valueString renders the raw JSON value as the canonical string the
// detector matches against. Strings are unquoted, numbers and booleans
// use their JSON text, structured values keep their compact JSON form.
// Reports false when the value is absent or JSON null.
func valueString(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", false
	}
	switch v := decoded.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return trimmed, true
	}
}
