// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package report writes the extraction outputs: the event and cycle
// CSVs, the raw JSON archive (optionally zstd-compressed), the
// optional deterministic CBOR archive of normalized events, and the
// styled console summary.
//
// All payloads are rendered in memory before anything touches disk, so
// a failure partway through rendering leaves no partial files behind.
package report

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Caisho/smartthings-api-extractor/cycle"
	"github.com/Caisho/smartthings-api-extractor/lib/clock"
	"github.com/Caisho/smartthings-api-extractor/smartthings"
)

// Writer renders and writes the output files for one extraction run.
type Writer struct {
	// Dir is the output directory; created if absent.
	Dir string

	// Prefix is the common file name prefix. File names follow
	// <prefix>_<YYYYMMDD_HHMMSS>_<zone>, with slashes in the IANA
	// zone name replaced by underscores.
	Prefix string

	// Location names the timezone used in file names and rendered
	// timestamps. Events are expected to already carry this location.
	Location *time.Location

	// CompressRaw switches the raw JSON archive to zstd.
	CompressRaw bool

	// CBORArchive additionally writes the normalized event sequence
	// as a deterministic CBOR archive.
	CBORArchive bool

	// Logger receives one info line per written file. nil means
	// slog.Default().
	Logger *slog.Logger

	// Clock supplies the run timestamp embedded in file names. nil
	// means the real clock.
	Clock clock.Clock
}

// File records one written output file for the run manifest.
type File struct {
	// Path is the full path the file was written to.
	Path string

	// Digest is the lowercase hex BLAKE3 digest of the file contents.
	Digest string

	// Bytes is the file size.
	Bytes int
}

// Manifest lists every file a run produced, in write order.
type Manifest struct {
	Files []File
}

// payload is one rendered output waiting to be written.
type payload struct {
	name string
	data []byte
}

// WriteAll renders every configured output and writes the files. The
// raw records feed the JSON archive; the normalized events feed the
// event CSV and the optional CBOR archive; the cycles feed the
// durations CSV. Nothing is written until every payload has rendered
// successfully.
func (w *Writer) WriteAll(records []smartthings.RawEvent, events []cycle.Event, cycles []cycle.Cycle) (Manifest, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := w.Clock
	if clk == nil {
		clk = clock.Real()
	}

	base := w.baseName(clk.Now())

	var payloads []payload

	eventsCSV, err := renderEventsCSV(events)
	if err != nil {
		return Manifest{}, fmt.Errorf("report: rendering events CSV: %w", err)
	}
	payloads = append(payloads, payload{base + "_events.csv", eventsCSV})

	cyclesCSV, err := renderCyclesCSV(cycles, w.Location)
	if err != nil {
		return Manifest{}, fmt.Errorf("report: rendering durations CSV: %w", err)
	}
	payloads = append(payloads, payload{base + "_durations.csv", cyclesCSV})

	rawName, rawData, err := renderRawArchive(records, w.CompressRaw)
	if err != nil {
		return Manifest{}, fmt.Errorf("report: rendering raw archive: %w", err)
	}
	payloads = append(payloads, payload{base + rawName, rawData})

	if w.CBORArchive {
		archive, err := renderCBORArchive(events)
		if err != nil {
			return Manifest{}, fmt.Errorf("report: rendering CBOR archive: %w", err)
		}
		payloads = append(payloads, payload{base + "_events.cbor", archive})
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("report: creating output directory: %w", err)
	}

	var manifest Manifest
	for _, p := range payloads {
		path := filepath.Join(w.Dir, p.name)
		if err := os.WriteFile(path, p.data, 0o644); err != nil {
			return Manifest{}, fmt.Errorf("report: writing %s: %w", path, err)
		}

		sum := blake3.Sum256(p.data)
		digest := hex.EncodeToString(sum[:])
		manifest.Files = append(manifest.Files, File{
			Path:   path,
			Digest: digest,
			Bytes:  len(p.data),
		})

		logger.Info("wrote output file",
			"path", path,
			"bytes", len(p.data),
			"blake3", digest)
	}

	return manifest, nil
}

// baseName builds the common file name stem from the run timestamp in
// the target timezone. IANA zone names contain slashes, which are not
// file name material.
func (w *Writer) baseName(now time.Time) string {
	local := now.In(w.Location)
	zone := strings.ReplaceAll(w.Location.String(), "/", "_")
	return fmt.Sprintf("%s_%s_%s", w.Prefix, local.Format("20060102_150405"), zone)
}
