// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config merges the chiseltrace run configuration from, in
// increasing precedence: built-in defaults, an optional chiseltrace.yaml
// file, and CLI flags. The merged Options is validated with
// go-playground/validator before use.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Options holds every setting a dyn-pdg/dyn-slice/static-slice/convert/
// inject invocation needs, independent of which subcommand reads it.
type Options struct {
	// PDGPath is the static PDG JSON document to load. Required.
	PDGPath string `yaml:"pdg_path" validate:"required"`

	// VCDPath is the simulation waveform to step through. Required for
	// dyn-pdg/dyn-slice/inject; unused by static-slice/convert.
	VCDPath string `yaml:"vcd_path"`

	// Criterion is the slicing criterion string ("signal:NAME" or
	// "statement:NAME").
	Criterion string `yaml:"criterion" validate:"required"`

	// OutputPath is where the exported DPDG JSON is written.
	// Defaults to "out.json", matching the original CLI's default file
	// convention.
	OutputPath string `yaml:"output_path" validate:"required"`

	// DataOnly restricts the export to Data edges; Index, Conditional and
	// Declaration edges are skipped (§4.6 DataOnly mode).
	DataOnly bool `yaml:"data_only"`

	// MaxCycles is the cycle budget in half-cycles: the builder stops once
	// twice the number of cycles read exceeds it; 0 means unbounded (run
	// until VCD EOF).
	MaxCycles uint64 `yaml:"max_cycles" validate:"gte=0"`

	// ExtraScopes is the VCD scope prefix under which the reader resolves
	// the fixed signals "clock"/"reset" and every probe_-prefixed signal
	// (vcdreader.Open's convention) — there is no separate clock-path or
	// reset-path override.
	ExtraScopes []string `yaml:"extra_scopes"`

	// ProgressEvery is a cycle interval, validated and merged like the
	// other fields. Must be positive. Neither the builder nor its logging
	// or observability reads it.
	ProgressEvery uint64 `yaml:"progress_every" validate:"gt=0"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogDir enables file logging under this directory, in addition to
	// stderr.
	LogDir string `yaml:"log_dir"`

	// MetricsAddr, if set, serves Prometheus metrics (and the optional
	// status/websocket surface) on this address.
	MetricsAddr string `yaml:"metrics_addr"`

	// TUI enables the bubbletea progress view when stdout is a TTY.
	TUI bool `yaml:"tui"`

	// SnapshotStore selects the Σ overflow backend: "memory" (default) or
	// "badger".
	SnapshotStore string `yaml:"snapshot_store" validate:"omitempty,oneof=memory badger"`

	// SnapshotRetention bounds how many trailing cycles of Σ are kept
	// in memory before older ones spill to the snapshot store, when
	// SnapshotStore is "badger". 0 means "keep all in memory".
	SnapshotRetention uint64 `yaml:"snapshot_retention"`
}

// Defaults returns an Options with every field set to its documented
// default. File and flag layers are merged on top of this.
func Defaults() Options {
	return Options{
		OutputPath:    "out.json",
		ProgressEvery: 1000,
		LogLevel:      "info",
		SnapshotStore: "memory",
	}
}

var validate = validator.New()

// Validate checks o against its struct tags, returning the first
// validation failure as a readable error.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoadFile reads a YAML config file at path and merges its non-zero
// fields over base. A missing file is not an error — chiseltrace.yaml is
// optional, with flags and defaults sufficient on their own.
func LoadFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fromFile Options
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return base, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return mergeNonZero(base, fromFile), nil
}

// mergeNonZero overlays every non-zero-valued field of override onto base,
// leaving base's value wherever override left the field at its zero value.
func mergeNonZero(base, override Options) Options {
	if override.PDGPath != "" {
		base.PDGPath = override.PDGPath
	}
	if override.VCDPath != "" {
		base.VCDPath = override.VCDPath
	}
	if override.Criterion != "" {
		base.Criterion = override.Criterion
	}
	if override.OutputPath != "" {
		base.OutputPath = override.OutputPath
	}
	if override.DataOnly {
		base.DataOnly = true
	}
	if override.MaxCycles != 0 {
		base.MaxCycles = override.MaxCycles
	}
	if len(override.ExtraScopes) > 0 {
		base.ExtraScopes = override.ExtraScopes
	}
	if override.ProgressEvery != 0 {
		base.ProgressEvery = override.ProgressEvery
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.LogDir != "" {
		base.LogDir = override.LogDir
	}
	if override.MetricsAddr != "" {
		base.MetricsAddr = override.MetricsAddr
	}
	if override.TUI {
		base.TUI = true
	}
	if override.SnapshotStore != "" {
		base.SnapshotStore = override.SnapshotStore
	}
	if override.SnapshotRetention != 0 {
		base.SnapshotRetention = override.SnapshotRetention
	}
	return base
}
