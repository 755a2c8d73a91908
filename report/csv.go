// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/Caisho/smartthings-api-extractor/cycle"
)

// csvTimeLayout renders timestamps in the target timezone without an
// offset suffix. The timezone column on the durations CSV names the
// zone once instead.
const csvTimeLayout = "2006-01-02 15:04:05"

var eventsHeader = []string{
	"time", "device_id", "device_name", "location_id", "location_name",
	"component", "capability", "attribute", "value", "unit", "text",
}

func renderEventsCSV(events []cycle.Event) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(eventsHeader); err != nil {
		return nil, err
	}
	for _, event := range events {
		record := []string{
			event.Time.Format(csvTimeLayout),
			event.DeviceID,
			event.DeviceName,
			event.LocationID,
			event.LocationName,
			event.Component,
			event.Capability,
			event.Attribute,
			event.Value,
			event.Unit,
			event.Text,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var cyclesHeader = []string{
	"start_time", "end_time", "status",
	"duration_minutes", "duration_hours", "duration_formatted",
	"timezone", "device_id", "device_name", "location_id", "location_name",
}

func renderCyclesCSV(cycles []cycle.Cycle, location *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(cyclesHeader); err != nil {
		return nil, err
	}
	for _, c := range cycles {
		record := []string{
			c.Start.Time.Format(csvTimeLayout),
			"", // end_time
			string(c.Status),
			"", // duration_minutes
			"", // duration_hours
			"", // duration_formatted
			location.String(),
			c.Start.DeviceID,
			c.Start.DeviceName,
			c.Start.LocationID,
			c.Start.LocationName,
		}
		if c.Complete() {
			record[1] = c.End.Time.Format(csvTimeLayout)
			record[3] = strconv.FormatFloat(c.Duration.Minutes(), 'f', 2, 64)
			record[4] = strconv.FormatFloat(c.Duration.Hours(), 'f', 4, 64)
			record[5] = c.Duration.Truncate(time.Second).String()
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
