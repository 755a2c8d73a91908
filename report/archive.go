// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/Caisho/smartthings-api-extractor/cycle"
	"github.com/Caisho/smartthings-api-extractor/lib/codec"
	"github.com/Caisho/smartthings-api-extractor/smartthings"
)

// zstdEncoder is reused across runs. zstd.Encoder is safe for
// concurrent use in EncodeAll mode.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("report: zstd encoder initialization failed: " + err.Error())
	}
}

// renderRawArchive marshals the raw history records exactly as the API
// delivered them, indented for human inspection. With compression
// enabled the JSON is zstd-framed and the name suffix says so.
func renderRawArchive(records []smartthings.RawEvent, compress bool) (name string, data []byte, err error) {
	data, err = json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", nil, err
	}

	if !compress {
		return "_raw.json", data, nil
	}
	return "_raw.json.zst", zstdEncoder.EncodeAll(data, nil), nil
}

// renderCBORArchive encodes the normalized event sequence with the
// deterministic CBOR mode, so identical event sequences always yield
// identical archive bytes and digests.
func renderCBORArchive(events []cycle.Event) ([]byte, error) {
	return codec.Marshal(events)
}
