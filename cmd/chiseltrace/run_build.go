// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chiseltrace/chiseltrace-go/internal/config"
	"github.com/chiseltrace/chiseltrace-go/internal/criterion"
	"github.com/chiseltrace/chiseltrace-go/internal/dpdg"
	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/lock"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
	"github.com/chiseltrace/chiseltrace-go/internal/predicate"
	"github.com/chiseltrace/chiseltrace-go/internal/progress"
	"github.com/chiseltrace/chiseltrace-go/internal/snapshotstore"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
	"github.com/chiseltrace/chiseltrace-go/pkg/logging"
	"github.com/chiseltrace/chiseltrace-go/pkg/obs"
)

func runDynPDG(cmd *cobra.Command, args []string) error {
	hgldd, topModule := args[2], args[4]
	extra := args[5:]

	crit, err := resolveCriterionArg(args[0], args[3])
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd, func(o *config.Options) {
		o.PDGPath = args[0]
		o.VCDPath = args[1]
		o.Criterion = crit
		if len(extra) > 0 {
			o.ExtraScopes = extra
		}
	})
	if err != nil {
		return err
	}

	logging.Default().Info("dyn-pdg invoked", "hgldd", hgldd, "top_module", topModule)
	return runBuild(opts, dpdg.Normal, "dyn-pdg")
}

func runDynSlice(cmd *cobra.Command, args []string) error {
	extra := args[3:]

	crit, err := resolveCriterionArg(args[0], args[2])
	if err != nil {
		return err
	}
	opts, err := loadOptions(cmd, func(o *config.Options) {
		o.PDGPath = args[0]
		o.VCDPath = args[1]
		o.Criterion = crit
		if len(extra) > 0 {
			o.ExtraScopes = extra
		}
	})
	if err != nil {
		return err
	}

	return runBuild(opts, dpdg.Full, "dyn-slice")
}

// runBuild wires every ambient concern (logging, observability, the
// output-file lock, the snapshot store, and the optional TUI/status
// server) around one dpdg.Builder run, then exports the result.
func runBuild(opts config.Options, mode dpdg.Mode, service string) error {
	logger := logging.New(logging.Config{
		Level:   parseLogLevel(opts.LogLevel),
		LogDir:  opts.LogDir,
		Service: service,
		Quiet:   opts.TUI,
	})
	defer logger.Close()

	out, err := lock.Acquire(opts.OutputPath)
	if err != nil {
		return fmt.Errorf("acquiring output lock: %w", err)
	}
	defer out.Close()

	// The PDG decode and the VCD header parse touch disjoint files and
	// neither depends on the other's result, so they run concurrently
	// rather than paying their I/O latency back to back.
	var pdg *pdgspec.PDG
	var vcd *vcdreader.Reader
	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		pdgFile, err := os.Open(opts.PDGPath)
		if err != nil {
			return fmt.Errorf("opening pdg: %w", err)
		}
		defer pdgFile.Close()
		decoded, err := pdgspec.Decode(pdgFile)
		if err != nil {
			return err
		}
		pdg = decoded
		return gctx.Err()
	})
	g.Go(func() error {
		reader, err := vcdreader.Open(opts.VCDPath, opts.ExtraScopes)
		if err != nil {
			return err
		}
		vcd = reader
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		if vcd != nil {
			vcd.Close()
		}
		return err
	}
	defer vcd.Close()

	crit, err := criterion.Parse(opts.Criterion)
	if err != nil {
		return err
	}

	preds, err := predicate.Init(pdg.Predicates, vcd)
	if err != nil {
		return err
	}

	if opts.DataOnly {
		mode = dpdg.DataOnly
	}

	exporter := obs.ExporterNone
	if opts.MetricsAddr != "" {
		exporter = obs.ExporterPrometheus
	}
	obsProvider, err := obs.New(obs.Config{Exporter: exporter, Logger: logger.Slog()})
	if err != nil {
		return fmt.Errorf("starting observability: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer obsProvider.Shutdown(ctx)

	var store snapshotstore.Store
	if opts.SnapshotStore == "badger" {
		dir, err := os.MkdirTemp("", "chiseltrace-snapshots-*")
		if err != nil {
			return fmt.Errorf("creating snapshot store dir: %w", err)
		}
		badger, err := snapshotstore.OpenBadgerStore(dir)
		if err != nil {
			return fmt.Errorf("opening badger snapshot store: %w", err)
		}
		defer badger.Close()
		store = badger
	}

	var statusSrv *statusServer
	if opts.MetricsAddr != "" {
		statusSrv = newStatusServer(opts.MetricsAddr, obsProvider, logger)
		statusSrv.Start()
		defer statusSrv.Shutdown(ctx)
	}

	var tuiProgram *tea.Program
	if opts.TUI && isatty.IsTerminal(os.Stdout.Fd()) {
		model := progress.NewModel()
		tuiProgram = tea.NewProgram(model)
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				logger.Error("tui exited with error", "error", err)
			}
		}()
		defer tuiProgram.Quit()
	}

	cfg := dpdg.Config{
		Mode:              mode,
		MaxCycles:         int64(opts.MaxCycles),
		Criterion:         crit,
		SnapshotStore:     store,
		SnapshotRetention: int64(opts.SnapshotRetention),
	}

	builder := dpdg.NewBuilder(pdg, vcd, preds, cfg, logger.Slog(), obsProvider.Metrics)
	result, err := builder.Run(ctx)
	if tuiProgram != nil {
		done := progress.DoneMsg{Err: err}
		if result != nil {
			done.Final = progress.Stats{Cycle: uint64(result.Cycles), NodesTotal: result.Arena.Len()}
		}
		tuiProgram.Send(done)
	}
	if err != nil {
		return err
	}

	doc := export.Build(result.Root)
	if statusSrv != nil {
		statusSrv.SetStats(progress.Stats{Cycle: uint64(result.Cycles), NodesTotal: len(doc.Vertices), EdgesTotal: len(doc.Edges)})
	}
	if err := export.WriteJSON(out, doc); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	logger.Info("export complete", "vertices", len(doc.Vertices), "edges", len(doc.Edges), "path", opts.OutputPath)
	return nil
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
