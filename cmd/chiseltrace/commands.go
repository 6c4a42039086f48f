// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

var (
	verboseName bool

	rootCmd = &cobra.Command{
		Use:   "chiseltrace",
		Short: "Builds and exports Dynamic Program Dependence Graphs from a static PDG and a VCD waveform",
		Long: `chiseltrace steps a VCD simulation waveform cycle by cycle against a
static Program Dependence Graph, materializing the dynamic dependency
edges a single cycle's Data/Conditional/Index/Declaration relations
actually exercise, then exports the sub-graph reachable from a slicing
criterion.`,
	}

	dynPDGCmd = &cobra.Command{
		Use:   "dyn-pdg <pdg> <vcd> <hgldd> <criterion> <top-module> [extra-scopes...]",
		Short: "Build and export the full DPDG reachable from a criterion",
		Long: `dyn-pdg runs the seven-phase per-cycle builder in Normal mode
(Data, Index, and Conditional edges) until the VCD ends or --max-cycles
is reached, then exports the sub-graph rooted at the criterion node.

hgldd and top-module are accepted for argument-order compatibility with
the original tool; this build's exporter works entirely off relatedSignal
paths already present in the PDG, so neither feeds the cycle loop — they
are recorded in the log line and otherwise unused.`,
		Args: cobra.MinimumNArgs(5),
		RunE: runDynPDG,
	}

	dynSliceCmd = &cobra.Command{
		Use:   "dyn-slice <pdg> <vcd> <criterion> [extra-scopes...]",
		Short: "Build and export a reduced dynamic slice (Full mode)",
		Long: `dyn-slice is dyn-pdg with processing mode Full: every materialized
edge kind including Declaration, matching the original CLI's distinct
slice-export entry point.`,
		Args: cobra.MinimumNArgs(3),
		RunE: runDynSlice,
	}

	staticSliceCmd = &cobra.Command{
		Use:   "static-slice <pdg> <criterion>",
		Short: "Compute a backward reachability slice of the static PDG (no VCD)",
		Long: `static-slice walks Edge.From -> Edge.To backward from the criterion
vertex with no waveform and no cycle stepping — a plain graph
reachability pass, sharing no code with the dynamic builder.`,
		Args: cobra.ExactArgs(2),
		RunE: runStaticSlice,
	}

	convertCmd = &cobra.Command{
		Use:   "convert <dpdg.json>",
		Short: "Collapse an exported DPDG to source-statement granularity",
		Long: `convert groups vertices sharing (file, line, clocked-shifted timestamp)
into one node and redirects Index edges through any probe_ vertices they
pass through, so the merged graph never references a removed probe.`,
		Args: cobra.ExactArgs(1),
		RunE: runConvert,
	}

	injectCmd = &cobra.Command{
		Use:   "inject <dpdg.json> <vcd>",
		Short: "Replay a VCD against an exported DPDG and stamp simData",
		Long: `inject is a second, independent pass over a VCD: for every vertex
with a relatedSignal, it records the signal's raw bit value at that
vertex's timestamp into simData.`,
		Args: cobra.ExactArgs(2),
		RunE: runInject,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "chiseltrace.yaml", "Optional YAML config file merged beneath flags")

	rootCmd.AddCommand(dynPDGCmd)
	addRunFlags(dynPDGCmd)

	rootCmd.AddCommand(dynSliceCmd)
	addRunFlags(dynSliceCmd)

	rootCmd.AddCommand(staticSliceCmd)
	staticSliceCmd.Flags().StringP("output", "o", "", "Sliced PDG JSON path (default \"out.json\")")

	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringP("output", "o", "out.json", "Converted DPDG JSON path")
	convertCmd.Flags().BoolVar(&verboseName, "verbose-name", false, "Render \"<name> at t=<ts> (<file>:<line>)\" instead of the bare statement name")

	rootCmd.AddCommand(injectCmd)
	injectCmd.Flags().StringP("output", "o", "out.json", "DPDG JSON path to write with simData populated")
	injectCmd.Flags().StringSlice("extra-scopes", nil, "VCD scope path under which relatedSignal paths resolve")
}
