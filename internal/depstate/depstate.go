// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package depstate is the "last-writer-wins" dependency state: the live
// symbol -> producing-dynamic-node table S, plus the snapshot ring Σ
// used to resolve delayed writes against the values that held at the
// cycle the write was enqueued.
package depstate

import (
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// DynNode is a dynamic node: one concrete activation of a static vertex.
// Identity is by pointer, never by value — two DynNodes with identical
// fields are still distinct graph nodes.
type DynNode struct {
	Spec      *pdgspec.Vertex
	Timestamp int64
	Deps      []Dep
}

// Dep is one outgoing dependency edge of a dynamic node.
type Dep struct {
	Node *DynNode
	Kind pdgspec.EdgeKind
}

// Live is S: the single source of truth consulted by non-delayed reads
// during the current cycle. Owned solely by the builder; never escapes
// the cycle loop.
type Live struct {
	s map[string]*DynNode
}

// NewLive returns an empty live table.
func NewLive() *Live {
	return &Live{s: make(map[string]*DynNode)}
}

// Get returns the current producer of symbol, if any.
func (l *Live) Get(symbol string) (*DynNode, bool) {
	n, ok := l.s[symbol]
	return n, ok
}

// Set records node as the current producer of symbol (last-writer-wins).
func (l *Live) Set(symbol string, node *DynNode) {
	l.s[symbol] = node
}

// Entries returns a copy of the symbol -> producing-node mapping, for
// callers (the optional disk-backed snapshot overflow) that need to
// serialize a Live table by arena index rather than pointer.
func (l *Live) Entries() map[string]*DynNode {
	cp := make(map[string]*DynNode, len(l.s))
	for k, v := range l.s {
		cp[k] = v
	}
	return cp
}

// NewLiveFrom builds a Live table from a pre-populated symbol mapping,
// the inverse of Entries — used to reconstitute a Live table read back
// from the disk-backed snapshot overflow.
func NewLiveFrom(entries map[string]*DynNode) *Live {
	return &Live{s: entries}
}

// Clone returns an independent copy of the live table.
//
// Description:
//
//	Returns an independent mapping snapshot: a new map over the same
//	*DynNode pointers. Because dynamic nodes are immutable after
//	creation, sharing the pointers is safe; only the symbol->node
//	associations need to be decoupled from future Set calls on the live
//	table — a snapshot is a mapping copy, never a reference-shared
//	alias of the live table.
//
// Outputs:
//
//	*Live - A new table whose symbol->node entries can diverge freely
//	  from further Set calls on the receiver.
func (l *Live) Clone() *Live {
	cp := make(map[string]*DynNode, len(l.s))
	for k, v := range l.s {
		cp[k] = v
	}
	return &Live{s: cp}
}

// Snapshot is one entry of Σ: the live table and probe values as they
// stood at the end of a cycle that enqueued a delayed write.
type Snapshot struct {
	Live   *Live
	Probes map[string]uint64
}

// SnapshotRing is Σ: cycle -> (S_snapshot, probe_values_snapshot), taken
// only on cycles that enqueue a delayed write.
type SnapshotRing struct {
	byCycle map[int64]Snapshot
}

// NewSnapshotRing returns an empty ring.
func NewSnapshotRing() *SnapshotRing {
	return &SnapshotRing{byCycle: make(map[int64]Snapshot)}
}

// Take records a snapshot of the live table and probe values under cycle.
//
// Description:
//
//	Clones live and probes so later mutation of the current cycle's
//	state cannot retroactively change a snapshot a delayed write may
//	still need to resolve against.
//
// Inputs:
//
//	cycle - The cycle number the snapshot is filed under.
//	live - The live table to clone. Not retained by reference.
//	probes - The probe values to clone alongside it.
func (r *SnapshotRing) Take(cycle int64, live *Live, probes map[string]uint64) {
	probesCopy := make(map[string]uint64, len(probes))
	for k, v := range probes {
		probesCopy[k] = v
	}
	r.byCycle[cycle] = Snapshot{Live: live.Clone(), Probes: probesCopy}
}

// At returns the snapshot taken at the given cycle, if one exists.
func (r *SnapshotRing) At(cycle int64) (Snapshot, bool) {
	s, ok := r.byCycle[cycle]
	return s, ok
}

// DropBefore discards every snapshot older than the oldest pending
// delayed-write fire_cycle. Snapshots older than that can never be
// consulted again, so dropping them is safe; calling this is optional —
// retaining every snapshot is the default behavior if DropBefore is
// never called.
func (r *SnapshotRing) DropBefore(oldestPending int64) {
	for cycle := range r.byCycle {
		if cycle < oldestPending {
			delete(r.byCycle, cycle)
		}
	}
}

// Len reports how many cycles currently have a retained snapshot.
func (r *SnapshotRing) Len() int { return len(r.byCycle) }
