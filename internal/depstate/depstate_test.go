// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package depstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

func TestLive_SetGet(t *testing.T) {
	l := NewLive()
	_, ok := l.Get("a")
	assert.False(t, ok)

	n := &DynNode{Spec: &pdgspec.Vertex{Name: "a"}, Timestamp: 3}
	l.Set("a", n)

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Same(t, n, got)
}

func TestLive_SetOverwritesLastWriterWins(t *testing.T) {
	l := NewLive()
	n1 := &DynNode{Timestamp: 1}
	n2 := &DynNode{Timestamp: 2}
	l.Set("a", n1)
	l.Set("a", n2)

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Same(t, n2, got)
}

func TestLive_CloneIsIndependentMapping(t *testing.T) {
	l := NewLive()
	n1 := &DynNode{Timestamp: 1}
	l.Set("a", n1)

	clone := l.Clone()

	n2 := &DynNode{Timestamp: 2}
	l.Set("a", n2)
	l.Set("b", n2)

	got, ok := clone.Get("a")
	require.True(t, ok)
	assert.Same(t, n1, got, "clone must not see later writes to the live table")

	_, ok = clone.Get("b")
	assert.False(t, ok, "clone must not see symbols introduced after the clone was taken")
}

func TestLive_ClonePreservesPointerIdentity(t *testing.T) {
	l := NewLive()
	n := &DynNode{Timestamp: 5}
	l.Set("a", n)

	clone := l.Clone()
	got, _ := clone.Get("a")
	assert.Same(t, n, got, "clone must share the same *DynNode pointers, not deep copies")
}

func TestSnapshotRing_TakeAndAt(t *testing.T) {
	l := NewLive()
	n := &DynNode{Timestamp: 1}
	l.Set("a", n)
	probes := map[string]uint64{"probe_sel": 1}

	ring := NewSnapshotRing()
	ring.Take(10, l, probes)

	snap, ok := ring.At(10)
	require.True(t, ok)
	got, ok := snap.Live.Get("a")
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Equal(t, uint64(1), snap.Probes["probe_sel"])

	_, ok = ring.At(11)
	assert.False(t, ok)
}

func TestSnapshotRing_TakeIsIndependentOfLaterMutation(t *testing.T) {
	l := NewLive()
	n1 := &DynNode{Timestamp: 1}
	l.Set("a", n1)
	probes := map[string]uint64{"probe_sel": 0}

	ring := NewSnapshotRing()
	ring.Take(10, l, probes)

	// Mutate the live table and the probes map passed by reference after
	// the snapshot was taken; the stored snapshot must not observe this.
	n2 := &DynNode{Timestamp: 2}
	l.Set("a", n2)
	probes["probe_sel"] = 1

	snap, ok := ring.At(10)
	require.True(t, ok)
	got, _ := snap.Live.Get("a")
	assert.Same(t, n1, got)
	assert.Equal(t, uint64(0), snap.Probes["probe_sel"])
}

func TestSnapshotRing_DropBefore(t *testing.T) {
	ring := NewSnapshotRing()
	l := NewLive()
	ring.Take(1, l, nil)
	ring.Take(5, l, nil)
	ring.Take(10, l, nil)
	assert.Equal(t, 3, ring.Len())

	ring.DropBefore(5)
	assert.Equal(t, 2, ring.Len())

	_, ok := ring.At(1)
	assert.False(t, ok)
	_, ok = ring.At(5)
	assert.True(t, ok)
	_, ok = ring.At(10)
	assert.True(t, ok)
}

func TestSnapshotRing_LenEmpty(t *testing.T) {
	ring := NewSnapshotRing()
	assert.Equal(t, 0, ring.Len())
}
