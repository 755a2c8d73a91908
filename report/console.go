// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Caisho/smartthings-api-extractor/cycle"
)

// Summary collects everything the end-of-run console report shows.
type Summary struct {
	// Records is the raw record count fetched from the API.
	Records int
	// Dropped and Duplicates come from normalization.
	Dropped    int
	Duplicates int

	// Events is the normalized event count.
	Events int
	// From and To bound the normalized event range; zero when no
	// events survived.
	From time.Time
	To   time.Time

	Cycles          []cycle.Cycle
	DuplicateStarts int
	Ignored         int
	Stats           cycle.SummaryStats

	Files []File
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	completeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	incompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pathStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Render formats the run summary for the terminal.
func Render(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Extraction summary"))
	b.WriteByte('\n')

	line(&b, "records fetched", fmt.Sprintf("%d", s.Records))
	if s.Dropped > 0 {
		line(&b, "records dropped", fmt.Sprintf("%d", s.Dropped))
	}
	if s.Duplicates > 0 {
		line(&b, "duplicates removed", fmt.Sprintf("%d", s.Duplicates))
	}
	line(&b, "events", fmt.Sprintf("%d", s.Events))
	if !s.From.IsZero() {
		line(&b, "range", fmt.Sprintf("%s .. %s",
			s.From.Format(csvTimeLayout), s.To.Format(csvTimeLayout)))
	}

	b.WriteByte('\n')
	b.WriteString(titleStyle.Render("Cycles"))
	b.WriteByte('\n')
	line(&b, "complete", completeStyle.Render(fmt.Sprintf("%d", s.Stats.Complete)))
	if s.Stats.Incomplete > 0 {
		line(&b, "incomplete", incompleteStyle.Render(fmt.Sprintf("%d", s.Stats.Incomplete)))
	}
	if s.DuplicateStarts > 0 {
		line(&b, "duplicate starts", fmt.Sprintf("%d", s.DuplicateStarts))
	}
	if s.Ignored > 0 {
		line(&b, "ignored events", fmt.Sprintf("%d", s.Ignored))
	}
	if s.Stats.Valid {
		line(&b, "duration min", formatDuration(s.Stats.Min))
		line(&b, "duration mean", formatDuration(s.Stats.Mean))
		line(&b, "duration max", formatDuration(s.Stats.Max))
	}

	for _, c := range s.Cycles {
		var status string
		if c.Complete() {
			status = completeStyle.Render(fmt.Sprintf("%-10s", c.Status)) + " " + formatDuration(c.Duration)
		} else {
			status = incompleteStyle.Render(string(c.Status))
		}
		fmt.Fprintf(&b, "  %s  %s\n", c.Start.Time.Format(csvTimeLayout), status)
	}

	if len(s.Files) > 0 {
		b.WriteByte('\n')
		b.WriteString(titleStyle.Render("Files"))
		b.WriteByte('\n')
		for _, f := range s.Files {
			fmt.Fprintf(&b, "  %s %s\n",
				pathStyle.Render(f.Path),
				labelStyle.Render(fmt.Sprintf("(%d bytes, blake3 %s)", f.Bytes, f.Digest[:12])))
		}
	}

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), value)
}

func formatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
