// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package staticslice computes a backward reachability slice of the static
// PDG from a single criterion vertex, with no VCD and no cycle stepping.
// It shares no code with the dynamic builder in internal/dpdg: the static
// PDG has no notion of time, so "dependency" here means only "reachable by
// following Edge.From -> Edge.To", the same relation the builder follows
// per cycle, just without ever re-evaluating it against waveform state.
package staticslice

import (
	"sort"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
	"github.com/chiseltrace/chiseltrace-go/internal/criterion"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// Slice reduces pdg to the vertices (and their CFG/predicate scaffolding)
// reachable from the criterion vertex, reindexing edges and CFG statement
// references onto the smaller vertex set. pdg is not mutated; a new PDG
// is returned.
func Slice(pdg *pdgspec.PDG, crit criterion.Criterion) (*pdgspec.PDG, error) {
	critIdx, err := findCriterion(pdg, crit)
	if err != nil {
		return nil, err
	}

	visited := make([]bool, len(pdg.Vertices))
	stack := []uint32{critIdx}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, e := range pdg.EdgesByFrom[cur] {
			if !visited[e.To] {
				stack = append(stack, e.To)
			}
		}
	}

	// idxRemap[old] is the new index of a kept vertex, or nil if removed.
	idxRemap := make([]*uint32, len(pdg.Vertices))
	var removed []int
	next := uint32(0)
	for i, keep := range visited {
		if keep {
			n := next
			idxRemap[i] = &n
			next++
		} else {
			removed = append(removed, i)
		}
	}
	sort.Ints(removed)

	newVertices := make([]pdgspec.Vertex, 0, next)
	for i, v := range pdg.Vertices {
		if idxRemap[i] != nil {
			newVertices = append(newVertices, v)
		}
	}

	newEdges := make([]pdgspec.Edge, 0, len(pdg.Edges))
	for _, e := range pdg.Edges {
		from, to := idxRemap[e.From], idxRemap[e.To]
		if from == nil || to == nil {
			continue
		}
		newEdges = append(newEdges, pdgspec.Edge{From: *from, To: *to, Kind: e.Kind, Clocked: e.Clocked, Condition: e.Condition})
	}

	var removedPredicates []int
	newCFG := reduceCFG(pdg.CFG, idxRemap, &removedPredicates)

	sort.Sort(sort.Reverse(sort.IntSlice(removedPredicates)))
	newPredicates := make([]pdgspec.Vertex, len(pdg.Predicates))
	copy(newPredicates, pdg.Predicates)
	for _, i := range removedPredicates {
		if i < 0 || i >= len(newPredicates) {
			continue
		}
		newPredicates = append(newPredicates[:i], newPredicates[i+1:]...)
	}

	out := &pdgspec.PDG{
		Vertices:   newVertices,
		Edges:      newEdges,
		Predicates: newPredicates,
		CFG:        newCFG,
	}
	out.Reindex()
	return out, nil
}

// reduceCFG drops every leaf statement whose stmtRef was removed, and every
// fork whose own stmtRef was removed (recording its predicate index for
// removal from Predicates too, since a dropped branch's guard no longer
// needs probing).
func reduceCFG(nodes []pdgspec.CFGNode, idxRemap []*uint32, removedPredicates *[]int) []pdgspec.CFGNode {
	out := make([]pdgspec.CFGNode, 0, len(nodes))
	for _, n := range nodes {
		newRef := idxRemap[n.StmtRef]
		if n.IsFork() {
			if newRef == nil {
				*removedPredicates = append(*removedPredicates, int(*n.PredStmtRef))
				continue
			}
			var trueBranch, falseBranch []pdgspec.CFGNode
			if n.TrueBranch != nil {
				trueBranch = reduceCFG(n.TrueBranch, idxRemap, removedPredicates)
			}
			if n.FalseBranch != nil {
				falseBranch = reduceCFG(n.FalseBranch, idxRemap, removedPredicates)
			}
			out = append(out, pdgspec.CFGNode{
				StmtRef:     *newRef,
				PredStmtRef: n.PredStmtRef,
				TrueBranch:  trueBranch,
				FalseBranch: falseBranch,
			})
		} else {
			if newRef == nil {
				continue
			}
			out = append(out, pdgspec.CFGNode{StmtRef: *newRef})
		}
	}
	return out
}

func findCriterion(pdg *pdgspec.PDG, crit criterion.Criterion) (uint32, error) {
	for i, v := range pdg.Vertices {
		if crit.Matches(v.Name, v.AssignsTo) {
			return uint32(i), nil
		}
	}
	return 0, chiserr.NewCriterionError(crit.Name, chiserr.ErrBadCriterion)
}
