// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cfgwalk walks the static control-flow forest to the ordered set
// of statements active this cycle, driven by the live predicate state.
package cfgwalk

import (
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// Asserter reports whether the predicate at a given CFG forest index holds.
// Satisfied by *predicate.State.
type Asserter interface {
	Asserted(predIdx uint32) bool
}

// Activate returns every statement active this cycle.
//
// Description:
//
//	Performs an iterative depth-first traversal of forest, starting from
//	a stack seeded with the roots in reverse so pop-order yields the
//	original forward order. Every visited node's StmtRef is emitted; at
//	a fork, the true or false branch is pushed (reversed) depending on
//	whether the predicate holds, and a missing branch means no further
//	statements on that path this cycle.
//
// Inputs:
//
//	forest - The static CFG roots to walk this cycle.
//	preds - Resolves whether a fork's guarding predicate currently holds.
//
// Outputs:
//
//	[]uint32 - StmtRef indices active this cycle, in forward forest order.
func Activate(forest []pdgspec.CFGNode, preds Asserter) []uint32 {
	stack := reversedCopy(forest)
	var activated []uint32

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		activated = append(activated, node.StmtRef)

		if node.PredStmtRef == nil {
			continue
		}
		if preds.Asserted(*node.PredStmtRef) {
			if node.TrueBranch != nil {
				stack = append(stack, reversedCopy(node.TrueBranch)...)
			}
		} else if node.FalseBranch != nil {
			stack = append(stack, reversedCopy(node.FalseBranch)...)
		}
	}

	return activated
}

func reversedCopy(nodes []pdgspec.CFGNode) []pdgspec.CFGNode {
	out := make([]pdgspec.CFGNode, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}
