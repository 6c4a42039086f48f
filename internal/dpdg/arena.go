// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dpdg

import (
	"github.com/chiseltrace/chiseltrace-go/internal/depstate"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// Arena owns every dynamic node created during a build and assigns each
// one a stable zero-based index at creation time, maintaining an O(1)
// pointer-identity -> index mapping. Reference counting the dynamic graph
// would leak if a cycle ever slipped into the dependency edges; owning
// nodes by arena index instead sidesteps that, and is what the exporter's
// deduplication pass needs.
type Arena struct {
	nodes []*depstate.DynNode
	index map[*depstate.DynNode]uint32
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{index: make(map[*depstate.DynNode]uint32)}
}

// Alloc creates a new dynamic node for spec at timestamp, registers it at
// the next stable index, and returns it.
func (a *Arena) Alloc(spec *pdgspec.Vertex, timestamp int64) *depstate.DynNode {
	n := &depstate.DynNode{Spec: spec, Timestamp: timestamp}
	idx := uint32(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.index[n] = idx
	return n
}

// IndexOf returns n's stable index, if n was allocated by this arena.
func (a *Arena) IndexOf(n *depstate.DynNode) (uint32, bool) {
	idx, ok := a.index[n]
	return idx, ok
}

// Node returns the node at idx.
func (a *Arena) Node(idx uint32) *depstate.DynNode { return a.nodes[idx] }

// Len reports how many dynamic nodes have been allocated.
func (a *Arena) Len() int { return len(a.nodes) }
