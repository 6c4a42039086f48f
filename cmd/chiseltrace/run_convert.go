// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chiseltrace/chiseltrace-go/internal/convert"
	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/lock"
)

func runConvert(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer in.Close()

	doc, err := export.ReadJSON(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	converted := convert.Convert(doc, convert.Options{VerboseName: verboseName})

	outputPath, _ := cmd.Flags().GetString("output")
	out, err := lock.Acquire(outputPath)
	if err != nil {
		return fmt.Errorf("acquiring output lock: %w", err)
	}
	defer out.Close()

	if err := export.WriteJSON(out, converted); err != nil {
		return fmt.Errorf("writing converted document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "convert: collapsed %d vertices into %d, %d edges remain, wrote %s\n",
		len(doc.Vertices), len(converted.Vertices), len(converted.Edges), outputPath)
	return nil
}
