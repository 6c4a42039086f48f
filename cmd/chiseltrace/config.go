// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/chiseltrace/chiseltrace-go/internal/config"
)

// configFile is the optional chiseltrace.yaml path, shared by every
// subcommand that reads internal/config.Options.
var configFile string

// loadOptions merges, in increasing precedence, internal/config.Defaults,
// an optional YAML file at configFile, positional arguments (set directly
// on opts by the caller, since cobra never treats these as "flags" a user
// can omit), and any flag the caller actually passed on this invocation.
func loadOptions(cmd *cobra.Command, positional func(*config.Options)) (config.Options, error) {
	opts := config.Defaults()

	opts, err := config.LoadFile(configFile, opts)
	if err != nil {
		return opts, err
	}

	if positional != nil {
		positional(&opts)
	}
	applyFlagOverrides(cmd, &opts)

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyFlagOverrides lets any flag the user actually set on cmd win over
// both the file and the defaults layer; flags left at their zero value
// (Changed == false) never clobber what loadOptions already assembled.
func applyFlagOverrides(cmd *cobra.Command, opts *config.Options) {
	f := cmd.Flags()

	if f.Changed("output") {
		opts.OutputPath, _ = f.GetString("output")
	}
	if f.Changed("max-cycles") {
		opts.MaxCycles, _ = f.GetUint64("max-cycles")
	}
	if f.Changed("extra-scopes") {
		opts.ExtraScopes, _ = f.GetStringSlice("extra-scopes")
	}
	if f.Changed("data-only") {
		opts.DataOnly, _ = f.GetBool("data-only")
	}
	if f.Changed("progress-every") {
		opts.ProgressEvery, _ = f.GetUint64("progress-every")
	}
	if f.Changed("log-level") {
		opts.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-dir") {
		opts.LogDir, _ = f.GetString("log-dir")
	}
	if f.Changed("metrics-addr") {
		opts.MetricsAddr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("tui") {
		opts.TUI, _ = f.GetBool("tui")
	}
	if f.Changed("snapshot-store") {
		opts.SnapshotStore, _ = f.GetString("snapshot-store")
	}
	if f.Changed("snapshot-retention") {
		opts.SnapshotRetention, _ = f.GetUint64("snapshot-retention")
	}
}

// addRunFlags registers the flag surface shared by dyn-pdg and dyn-slice,
// the two subcommands that run the full builder pipeline.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Exported DPDG JSON path (default \"out.json\")")
	cmd.Flags().Uint64("max-cycles", 0, "Stop after this many half-cycles; 0 runs to VCD EOF")
	cmd.Flags().StringSlice("extra-scopes", nil, "VCD scope path under which clock/reset/probe_* signals resolve")
	cmd.Flags().Bool("data-only", false, "Restrict the export to Data edges only")
	cmd.Flags().Uint64("progress-every", 0, "Positive cycle interval, validated and stored in the run options; the builder writes no per-interval progress lines")
	cmd.Flags().String("log-level", "", "debug, info, warn, or error")
	cmd.Flags().String("log-dir", "", "Also write JSON logs under this directory")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics and run status on this address")
	cmd.Flags().Bool("tui", false, "Show a live bubbletea progress view instead of log lines")
	cmd.Flags().String("snapshot-store", "", "memory (default) or badger")
	cmd.Flags().Uint64("snapshot-retention", 0, "Trailing cycles of dependency state kept in memory before spilling to the snapshot store")
}
