// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package smartthings

import "encoding/json"

// RawEvent is one device history record exactly as the API reports it.
// The fetcher does not interpret event semantics; normalization,
// dedup, and ordering happen downstream in the cycle package.
type RawEvent struct {
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	LocationName string `json:"locationName,omitempty"`

	// Time is the RFC3339 representation of the event instant. Epoch
	// is the same instant as unix milliseconds; when both are present
	// Epoch is authoritative.
	Time  string `json:"time,omitempty"`
	Epoch int64  `json:"epoch,omitempty"`

	Component  string `json:"component,omitempty"`
	Capability string `json:"capability,omitempty"`
	Attribute  string `json:"attribute,omitempty"`

	// Value is kept raw: the API reports strings, numbers, and
	// occasionally structured values depending on the capability.
	Value json.RawMessage `json:"value,omitempty"`
	Unit  string          `json:"unit,omitempty"`

	// Text is the API's human-readable rendering of the event.
	Text string `json:"text,omitempty"`
}

// historyPage is the wire shape of one history response page. The
// next-page cursor is a complete opaque URL in _links.next.href; an
// absent or empty href signals the end of the stream.
type historyPage struct {
	Items []RawEvent `json:"items"`
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}
