// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version for --version output.
package version

import (
	"fmt"
	"runtime/debug"
)

// Print writes the binary name, module version, and VCS revision (when
// the binary was built from a checkout) to stdout.
func Print(binary string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Printf("%s (unknown build)\n", binary)
		return
	}

	revision := ""
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	line := fmt.Sprintf("%s %s", binary, info.Main.Version)
	if revision != "" {
		short := revision
		if len(short) > 12 {
			short = short[:12]
		}
		line += " (" + short
		if dirty {
			line += ", dirty"
		}
		line += ")"
	}
	fmt.Println(line)
}
