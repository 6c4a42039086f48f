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

	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/lock"
	"github.com/chiseltrace/chiseltrace-go/internal/siminject"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
)

func runInject(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer in.Close()

	doc, err := export.ReadJSON(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	extraScopes, _ := cmd.Flags().GetStringSlice("extra-scopes")
	vcd, err := vcdreader.Open(args[1], extraScopes)
	if err != nil {
		return err
	}
	defer vcd.Close()

	if err := siminject.Inject(doc, vcd); err != nil {
		return fmt.Errorf("injecting sim data: %w", err)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	out, err := lock.Acquire(outputPath)
	if err != nil {
		return fmt.Errorf("acquiring output lock: %w", err)
	}
	defer out.Close()

	if err := export.WriteJSON(out, doc); err != nil {
		return fmt.Errorf("writing injected document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "inject: stamped simData across %d vertices, wrote %s\n", len(doc.Vertices), outputPath)
	return nil
}
