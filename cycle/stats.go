// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package cycle

import "time"

// SummaryStats aggregates durations over the complete cycles of a run.
// Incomplete cycles have no defined duration and are counted but never
// folded into the duration statistics.
type SummaryStats struct {
	Complete   int
	Incomplete int

	// Valid reports whether the duration fields carry meaning. It is
	// false when no complete cycle exists; Min, Max and Mean are zero
	// in that case and must not be rendered as real durations.
	Valid bool

	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// Summarize computes duration statistics over the complete cycles in
// the sequence.
func Summarize(cycles []Cycle) SummaryStats {
	var stats SummaryStats
	var total time.Duration

	for _, c := range cycles {
		if !c.Complete() {
			stats.Incomplete++
			continue
		}
		if stats.Complete == 0 || c.Duration < stats.Min {
			stats.Min = c.Duration
		}
		if c.Duration > stats.Max {
			stats.Max = c.Duration
		}
		total += c.Duration
		stats.Complete++
	}

	if stats.Complete > 0 {
		stats.Valid = true
		stats.Mean = total / time.Duration(stats.Complete)
	}
	return stats
}
