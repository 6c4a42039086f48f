// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command chiseltrace builds and exports Dynamic Program Dependence
// Graphs from a static PDG and a VCD waveform, and carries the three
// ancillary post-processing subcommands (static-slice, convert, inject)
// that operate on the same JSON schemas without touching the builder.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chiseltrace:", err)
		os.Exit(exitCodeFor(err))
	}
}
