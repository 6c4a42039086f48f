// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dpdg is the per-cycle driver that creates dynamic nodes,
// resolves their dependencies against the live dependency state, commits
// register updates, and remembers the node matching the slicing
// criterion.
package dpdg

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chiseltrace/chiseltrace-go/internal/cfgwalk"
	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
	"github.com/chiseltrace/chiseltrace-go/internal/criterion"
	"github.com/chiseltrace/chiseltrace-go/internal/depstate"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
	"github.com/chiseltrace/chiseltrace-go/internal/predicate"
	"github.com/chiseltrace/chiseltrace-go/internal/snapshotstore"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
	"github.com/chiseltrace/chiseltrace-go/pkg/obs"
)

var tracer = otel.Tracer("chiseltrace.dpdg")

// Mode selects which edge kinds Phase 4 materialises.
type Mode int

const (
	// Normal includes Data, Index, and Conditional edges (the default).
	Normal Mode = iota
	// DataOnly includes Data edges only.
	DataOnly
	// Full is Normal plus materialised Declaration edges, used to produce
	// dynamic slices for code-level (conversion) export.
	Full
)

func (m Mode) String() string {
	switch m {
	case DataOnly:
		return "DataOnly"
	case Full:
		return "Full"
	default:
		return "Normal"
	}
}

// Config parameterises one build run.
type Config struct {
	Mode      Mode
	MaxCycles int64 // 0 means unbounded
	Criterion criterion.Criterion

	// SnapshotStore, if set, receives every ring.Take entry as a durable,
	// arena-indexed copy and lets the ring evict cycles older than
	// SnapshotRetention while still answering readContext lookups for
	// them. A retained snapshot can be dropped once no pending delayed
	// write can reference it; this is additive, and the default nil
	// value keeps every snapshot in memory instead.
	SnapshotStore snapshotstore.Store

	// SnapshotRetention bounds how many trailing cycles of Σ stay in
	// memory once SnapshotStore is set. 0 disables eviction (the store
	// still receives a durable copy of every snapshot, but the ring
	// never shrinks).
	SnapshotRetention int64
}

// Result is the outcome of a completed build.
type Result struct {
	Root   *depstate.DynNode
	Arena  *Arena
	Cycles int64
}

type delayedWrite struct {
	fireCycle int64
	stmt      uint32
}

type createdEntry struct {
	vertex *pdgspec.Vertex
	stmt   uint32
	node   *depstate.DynNode
}

// CycleSource is the subset of *vcdreader.Reader the Builder depends on.
// Tests substitute a scripted fake to drive the seven-phase algorithm
// without fighting VCD timestamp/settling lag.
type CycleSource interface {
	ReadCycleChanges() (changes []vcdreader.ValueChange, eof bool, err error)
	CurrentTime() uint64
	ResetValue() vcdreader.Value
	ProbeValue(probePath string) (uint64, bool)
	ProbeValuesSnapshot() map[string]uint64
}

// Builder drives the seven-phase per-cycle algorithm to completion.
type Builder struct {
	pdg   *pdgspec.PDG
	vcd   CycleSource
	preds *predicate.State
	cfg   Config

	arena   *Arena
	live    *depstate.Live
	ring    *depstate.SnapshotRing
	regNext map[string]*depstate.DynNode
	cf      map[*pdgspec.Vertex]*depstate.DynNode
	delayed []delayedWrite

	candidate *depstate.DynNode

	logger         *slog.Logger
	metrics        *obs.Metrics
	lastDelayedLen int64
}

// NewBuilder creates a fresh Builder over a static PDG and an open VCD.
//
// Description:
//
//	Wires together the static PDG, an open VCD reader, and an
//	already-initialized predicate state into a fresh Builder, with an
//	empty arena, live table, and snapshot ring ready for Run.
//
// Inputs:
//
//	pdg - The decoded static program dependence graph to walk.
//	vcd - An open cycle source positioned at the start of the waveform.
//	preds - Predicate state already seeded from the PDG's predicate vertices.
//	cfg - Build parameters (mode, cycle budget, criterion, snapshot store).
//	logger - Destination for the start and summary log lines. Nil falls
//	  back to slog.Default().
//	metrics - Instrument set updated as cycles are processed. Nil disables
//	  instrument updates entirely.
//
// Outputs:
//
//	*Builder - The configured builder, ready for Run.
func NewBuilder(pdg *pdgspec.PDG, vcd CycleSource, preds *predicate.State, cfg Config, logger *slog.Logger, metrics *obs.Metrics) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		pdg:     pdg,
		vcd:     vcd,
		preds:   preds,
		cfg:     cfg,
		arena:   NewArena(),
		live:    depstate.NewLive(),
		ring:    depstate.NewSnapshotRing(),
		regNext: make(map[string]*depstate.DynNode),
		cf:      make(map[*pdgspec.Vertex]*depstate.DynNode),
		logger:  logger,
		metrics: metrics,
	}
}

// Run drives the build to completion.
//
// Description:
//
//	Steps the cycle loop until the VCD reaches EOF or the max-cycles
//	budget is exhausted, running the seven-phase algorithm once per
//	cycle, then resolves and returns the criterion's target node and
//	the arena of every dynamic node created along the way.
//
// Inputs:
//
//	ctx - Context for cancellation; checked once per cycle. Must not be nil.
//
// Outputs:
//
//	*Result - The resolved root node, the populated arena, and the cycle count.
//	error - Non-nil if the VCD, PDG, or criterion is malformed, or if ctx
//	  is cancelled before the run completes.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "dpdg.Build",
		trace.WithAttributes(
			attribute.String("dpdg.mode", b.cfg.Mode.String()),
			attribute.String("dpdg.criterion", b.cfg.Criterion.Name),
		),
	)
	defer span.End()

	start := time.Now()
	var cycles int64

	b.logger.Info("dpdg build started",
		slog.String("mode", b.cfg.Mode.String()),
		slog.Int64("max_cycles", b.cfg.MaxCycles),
	)

	for {
		select {
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context canceled")
			return nil, ctx.Err()
		default:
		}

		changes, eof, err := b.vcd.ReadCycleChanges()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		b.preds.Update(changes)

		tau := int64(b.vcd.CurrentTime()) - 1
		if err := b.runCycle(tau); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		cycles++

		if b.metrics != nil && b.metrics.CyclesTotal != nil {
			b.metrics.CyclesTotal.Add(ctx, 1)
		}
		if b.metrics != nil && b.metrics.DelayedPending != nil {
			// UpDownCounter has no Set; report the change in queue depth
			// since the previous cycle so the gauge tracks the absolute
			// depth over time.
			current := int64(len(b.delayed))
			b.metrics.DelayedPending.Add(ctx, current-b.lastDelayedLen)
			b.lastDelayedLen = current
		}

		budgetExceeded := b.cfg.MaxCycles > 0 && 2*int64(b.vcd.CurrentTime()) > b.cfg.MaxCycles
		if eof || budgetExceeded {
			break
		}
	}

	if b.metrics != nil && b.metrics.CycleDuration != nil {
		b.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds())
	}

	root, err := b.resolveRoot()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if b.metrics != nil && b.metrics.NodesTotal != nil {
		b.metrics.NodesTotal.Add(ctx, int64(b.arena.Len()))
	}
	if b.metrics != nil && b.metrics.EdgesTotal != nil {
		var edgeCount int64
		for i := 0; i < b.arena.Len(); i++ {
			edgeCount += int64(len(b.arena.Node(uint32(i)).Deps))
		}
		b.metrics.EdgesTotal.Add(ctx, edgeCount)
	}

	b.logger.Info("dpdg build finished",
		slog.Int64("cycles", cycles),
		slog.Int("nodes", b.arena.Len()),
	)

	return &Result{Root: root, Arena: b.arena, Cycles: cycles}, nil
}

func (b *Builder) resolveRoot() (*depstate.DynNode, error) {
	switch b.cfg.Criterion.Kind {
	case criterion.Statement:
		if b.candidate == nil {
			return nil, chiserr.NewCriterionError(b.cfg.Criterion.Name, chiserr.ErrBadCriterion)
		}
		return b.candidate, nil
	case criterion.Signal:
		node, ok := b.live.Get(b.cfg.Criterion.Name)
		if !ok {
			return nil, chiserr.NewCriterionError(b.cfg.Criterion.Name, chiserr.ErrBadCriterion)
		}
		return node, nil
	default:
		return nil, chiserr.NewCriterionError(b.cfg.Criterion.Name, chiserr.ErrBadCriterion)
	}
}

// runCycle performs phases 1 through 7 for corrected timestamp tau.
func (b *Builder) runCycle(tau int64) error {
	// Phase 1 — apply pending delayed writes due this cycle.
	var phase1Ready []uint32
	remaining := b.delayed[:0]
	for _, dw := range b.delayed {
		if dw.fireCycle == tau {
			phase1Ready = append(phase1Ready, dw.stmt)
		} else {
			remaining = append(remaining, dw)
		}
	}
	b.delayed = remaining

	// Walk the control-flow forest to find which statements are active
	// this cycle.
	activated := cfgwalk.Activate(b.pdg.CFG, b.preds)

	// Phase 2 — partition the CFG activation list by assign_delay.
	var immediate []uint32
	delayedPresent := false
	for _, stmt := range activated {
		v, err := b.pdg.VertexByIndex(stmt)
		if err != nil {
			return err
		}
		if v.AssignDelay > 0 {
			b.delayed = append(b.delayed, delayedWrite{fireCycle: tau + int64(v.AssignDelay), stmt: stmt})
			delayedPresent = true
		} else {
			immediate = append(immediate, stmt)
		}
	}
	immediate = append(immediate, phase1Ready...)

	// Phase 3 — node creation & provider registration.
	created := make([]createdEntry, 0, len(immediate))
	resetAsserted := b.vcd.ResetValue() == vcdreader.V1
	for _, stmt := range immediate {
		v, err := b.pdg.VertexByIndex(stmt)
		if err != nil {
			return err
		}

		nodeTS := tau
		if !v.Clocked {
			nodeTS = max64(tau-1, 0)
		}
		node := b.arena.Alloc(v, nodeTS)

		if evalCondition(v.Condition, b.liveProbeLookup) {
			if v.AssignsTo != nil {
				sigma := *v.AssignsTo
				switch {
				case v.Clocked && v.Kind == pdgspec.DataDefinition && (tau == 0 || resetAsserted):
					// Synchronous reset: the register's declaration becomes
					// its own provider one cycle earlier than activation.
					node.Timestamp--
					b.live.Set(sigma, node)
				case v.Clocked:
					b.regNext[sigma] = node
				default:
					b.live.Set(sigma, node)
				}
			}
			if v.Kind == pdgspec.ControlFlow {
				b.cf[v] = node
			}
		}

		created = append(created, createdEntry{vertex: v, stmt: stmt, node: node})
	}

	// Phase 4 — dependency resolution.
	for _, entry := range created {
		ctxLive, ctxProbeLookup := b.readContext(tau, entry.vertex)

		served := make(map[string]bool)
		for _, e := range b.pdg.EdgesByFrom[entry.stmt] {
			provider, err := b.pdg.VertexByIndex(e.To)
			if err != nil {
				return err
			}

			// Per-symbol dedup applies to Data/Index edges, which both
			// draw from a single-producer symbol table; Declaration and
			// Conditional edges are kind-distinct and exempt.
			dedupes := e.Kind == pdgspec.Data || e.Kind == pdgspec.Index
			if dedupes && provider.AssignsTo != nil && served[*provider.AssignsTo] {
				continue
			}
			if b.cfg.Mode == DataOnly && e.Kind != pdgspec.Data {
				continue
			}
			if !evalCondition(e.Condition, ctxProbeLookup) {
				continue
			}

			switch e.Kind {
			case pdgspec.Declaration:
				if b.cfg.Mode != Full {
					continue
				}
				decl := b.arena.Alloc(provider, tau-1)
				entry.node.Deps = append(entry.node.Deps, depstate.Dep{Node: decl, Kind: pdgspec.Declaration})

			case pdgspec.Data:
				if provider.AssignsTo == nil {
					continue
				}
				sigma := *provider.AssignsTo
				if n, ok := b.live.Get(sigma); ok {
					entry.node.Deps = append(entry.node.Deps, depstate.Dep{Node: n, Kind: pdgspec.Data})
					served[sigma] = true
				}

			case pdgspec.Index:
				if provider.AssignsTo == nil {
					continue
				}
				sigma := *provider.AssignsTo
				if n, ok := ctxLive.Get(sigma); ok {
					entry.node.Deps = append(entry.node.Deps, depstate.Dep{Node: n, Kind: pdgspec.Index})
					served[sigma] = true
				}

			case pdgspec.Conditional:
				if n, ok := b.cf[provider]; ok {
					entry.node.Deps = append(entry.node.Deps, depstate.Dep{Node: n, Kind: pdgspec.Conditional})
				}
			}
		}
	}

	// Phase 5 — register commit.
	for sigma, node := range b.regNext {
		b.live.Set(sigma, node)
	}
	b.regNext = make(map[string]*depstate.DynNode)
	b.cf = make(map[*pdgspec.Vertex]*depstate.DynNode)

	// Phase 6 — criterion capture.
	for _, entry := range created {
		if b.cfg.Criterion.Matches(entry.vertex.Name, entry.vertex.AssignsTo) {
			b.candidate = entry.node
		}
	}

	// Phase 7 — snapshot.
	if delayedPresent {
		probes := b.vcd.ProbeValuesSnapshot()
		b.ring.Take(tau, b.live, probes)
		if b.cfg.SnapshotStore != nil {
			if err := b.persistSnapshot(tau, probes); err != nil {
				b.logger.Warn("snapshot store write failed, falling back to in-memory ring only",
					slog.Int64("cycle", tau), slog.String("error", err.Error()))
			} else if b.cfg.SnapshotRetention > 0 {
				b.ring.DropBefore(tau - b.cfg.SnapshotRetention)
			}
		}
	}

	return nil
}

// persistSnapshot reduces the live table just taken into arena-indexed
// form and writes it to the configured overflow store.
func (b *Builder) persistSnapshot(tau int64, probes map[string]uint64) error {
	entries := b.live.Entries()
	symbols := make(map[string]uint32, len(entries))
	for symbol, node := range entries {
		idx, ok := b.arena.IndexOf(node)
		if !ok {
			continue
		}
		symbols[symbol] = idx
	}
	return b.cfg.SnapshotStore.Put(tau, snapshotstore.IndexedSnapshot{
		Symbols: symbols,
		Probes:  probes,
	})
}

// readContext picks the (live-table, probe-lookup) pair Phase 4 reads
// against for a given consumer vertex: the live state, unless the vertex
// has a nonzero assign_delay, in which case it is the snapshot taken
// assign_delay cycles earlier.
func (b *Builder) readContext(tau int64, v *pdgspec.Vertex) (*depstate.Live, func(string) (uint64, bool)) {
	if v.AssignDelay == 0 {
		return b.live, b.liveProbeLookup
	}
	fireCycle := tau - int64(v.AssignDelay)
	snap, ok := b.ring.At(fireCycle)
	if ok {
		probes := snap.Probes
		return snap.Live, func(name string) (uint64, bool) {
			v, ok := probes[name]
			return v, ok
		}
	}

	if b.cfg.SnapshotStore != nil {
		if live, probeLookup, ok := b.readIndexedSnapshot(fireCycle); ok {
			return live, probeLookup
		}
	}

	// No snapshot was retained for that cycle anywhere; fall back to the
	// live state rather than failing the whole build over a dropped
	// snapshot the ring (and store) were permitted to discard.
	return b.live, b.liveProbeLookup
}

// readIndexedSnapshot reconstitutes a Live table from the overflow store's
// arena-indexed form, resolving each symbol back to the dynamic node the
// arena already holds resident in memory.
func (b *Builder) readIndexedSnapshot(cycle int64) (*depstate.Live, func(string) (uint64, bool), bool) {
	indexed, ok, err := b.cfg.SnapshotStore.Get(cycle)
	if err != nil {
		b.logger.Warn("snapshot store read failed, falling back to live state",
			slog.Int64("cycle", cycle), slog.String("error", err.Error()))
		return nil, nil, false
	}
	if !ok {
		return nil, nil, false
	}
	entries := make(map[string]*depstate.DynNode, len(indexed.Symbols))
	for symbol, idx := range indexed.Symbols {
		entries[symbol] = b.arena.Node(idx)
	}
	probes := indexed.Probes
	return depstate.NewLiveFrom(entries), func(name string) (uint64, bool) {
		v, ok := probes[name]
		return v, ok
	}, true
}

func (b *Builder) liveProbeLookup(name string) (uint64, bool) {
	return b.vcd.ProbeValue(name)
}

// evalCondition evaluates a conjunction of (probe, value) equalities
// against lookup. A nil condition always holds; a probe absent from
// lookup makes the whole conjunction fail.
func evalCondition(cond *pdgspec.Condition, lookup func(string) (uint64, bool)) bool {
	if cond == nil {
		return true
	}
	for i, name := range cond.ProbeName {
		val, ok := lookup(name)
		if !ok || val != cond.ProbeValue[i] {
			return false
		}
	}
	return true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
