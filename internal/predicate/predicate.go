// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package predicate tracks which per-statement predicate probes are
// currently asserted, driving control-flow activation each cycle.
package predicate

import (
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
)

// Resolver resolves a dotted hierarchy path to a VCD identifier. Satisfied
// by *vcdreader.Reader; an interface here keeps predicate from depending on
// vcdreader's concrete cycle-stepping state, only its variable lookup.
type Resolver interface {
	FindVar(hierarchy string) (vcdreader.IDCode, error)
}

// State is ΠP: signal_id -> asserted, plus the order-preserving index the
// CFG Activator uses to map a CFG node's PredStmtRef to a live probe.
type State struct {
	values    map[vcdreader.IDCode]bool
	idxToID   []vcdreader.IDCode
}

// Init resolves every predicate vertex's Name as a dotted path under the
// reader's scope root, seeding ΠP[id] = false for each, in declaration
// order (so a CFG node's PredStmtRef can index straight into idxToID).
func Init(predicates []pdgspec.Vertex, resolver Resolver) (*State, error) {
	s := &State{
		values:  make(map[vcdreader.IDCode]bool, len(predicates)),
		idxToID: make([]vcdreader.IDCode, 0, len(predicates)),
	}
	for _, p := range predicates {
		id, err := resolver.FindVar(p.Name)
		if err != nil {
			return nil, err
		}
		s.values[id] = false
		s.idxToID = append(s.idxToID, id)
	}
	return s, nil
}

// Update absorbs a cycle's change set: every change whose ID matches a
// known predicate probe becomes (value == V1).
func (s *State) Update(changes []vcdreader.ValueChange) {
	for _, c := range changes {
		if _, ok := s.values[c.ID]; ok {
			s.values[c.ID] = c.Value == vcdreader.V1
		}
	}
}

// Asserted reports whether the predicate at the given CFG-forest index
// (pred_stmt_ref) currently holds. A predicate absent from ΠP — including
// an out-of-range index — counts as false.
func (s *State) Asserted(predIdx uint32) bool {
	if int(predIdx) >= len(s.idxToID) {
		return false
	}
	id := s.idxToID[predIdx]
	return s.values[id]
}
