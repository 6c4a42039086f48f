// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
	"github.com/chiseltrace/chiseltrace-go/internal/config"
	"github.com/chiseltrace/chiseltrace-go/internal/criterion"
	"github.com/chiseltrace/chiseltrace-go/internal/lock"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
	"github.com/chiseltrace/chiseltrace-go/internal/staticslice"
)

func runStaticSlice(cmd *cobra.Command, args []string) error {
	crit, err := resolveCriterionArg(args[0], args[1])
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd, func(o *config.Options) {
		o.PDGPath = args[0]
		o.Criterion = crit
	})
	if err != nil {
		return err
	}

	pdgFile, err := os.Open(opts.PDGPath)
	if err != nil {
		return chiserr.NewPDGError("open "+opts.PDGPath, err)
	}
	defer pdgFile.Close()
	pdg, err := pdgspec.Decode(pdgFile)
	if err != nil {
		return err
	}

	parsedCrit, err := criterion.Parse(opts.Criterion)
	if err != nil {
		return err
	}

	sliced, err := staticslice.Slice(pdg, parsedCrit)
	if err != nil {
		return err
	}

	out, err := lock.Acquire(opts.OutputPath)
	if err != nil {
		return fmt.Errorf("acquiring output lock: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sliced); err != nil {
		return fmt.Errorf("writing sliced pdg: %w", err)
	}

	fmt.Fprintf(os.Stderr, "static-slice: wrote %d vertices, %d edges to %s\n",
		len(sliced.Vertices), len(sliced.Edges), opts.OutputPath)
	return nil
}
