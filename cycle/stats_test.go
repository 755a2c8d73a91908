// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package cycle

import (
	"testing"
	"time"
)

func completeCycle(d time.Duration) Cycle {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	end := Event{Time: start.Add(d)}
	return Cycle{
		Start:    Event{Time: start},
		End:      &end,
		Duration: d,
		Status:   StatusComplete,
	}
}

func TestSummarizeMixed(t *testing.T) {
	cycles := []Cycle{
		completeCycle(60 * time.Minute),
		completeCycle(90 * time.Minute),
		{Start: Event{Time: time.Now()}, Status: StatusIncomplete},
		completeCycle(30 * time.Minute),
	}

	stats := Summarize(cycles)
	if !stats.Valid {
		t.Fatal("stats over complete cycles must be valid")
	}
	if stats.Complete != 3 || stats.Incomplete != 1 {
		t.Fatalf("expected 3 complete / 1 incomplete, got %d / %d", stats.Complete, stats.Incomplete)
	}
	if stats.Min != 30*time.Minute {
		t.Errorf("min: expected 30m, got %s", stats.Min)
	}
	if stats.Max != 90*time.Minute {
		t.Errorf("max: expected 90m, got %s", stats.Max)
	}
	if stats.Mean != 60*time.Minute {
		t.Errorf("mean: expected 60m, got %s", stats.Mean)
	}
}

func TestSummarizeNoCompleteCycles(t *testing.T) {
	cycles := []Cycle{
		{Start: Event{Time: time.Now()}, Status: StatusIncomplete},
	}

	stats := Summarize(cycles)
	if stats.Valid {
		t.Fatal("stats with no complete cycle must be invalid")
	}
	if stats.Complete != 0 || stats.Incomplete != 1 {
		t.Fatalf("expected 0 complete / 1 incomplete, got %d / %d", stats.Complete, stats.Incomplete)
	}
	if stats.Min != 0 || stats.Max != 0 || stats.Mean != 0 {
		t.Fatalf("invalid stats must carry zero durations, got min=%s max=%s mean=%s", stats.Min, stats.Max, stats.Mean)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	if stats.Valid {
		t.Fatal("empty input must yield invalid stats")
	}
	if stats.Complete != 0 || stats.Incomplete != 0 {
		t.Fatalf("expected zero counts, got %d / %d", stats.Complete, stats.Incomplete)
	}
}

func TestSummarizeSingleCycle(t *testing.T) {
	stats := Summarize([]Cycle{completeCycle(45 * time.Minute)})
	if !stats.Valid {
		t.Fatal("expected valid stats")
	}
	if stats.Min != 45*time.Minute || stats.Max != 45*time.Minute || stats.Mean != 45*time.Minute {
		t.Fatalf("single cycle: min/max/mean must all equal 45m, got %s/%s/%s", stats.Min, stats.Max, stats.Mean)
	}
}
