// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package export walks a resolved dynamic node to the exported DPDG JSON
// document: an iterative DFS from the root, assigning every distinct
// dynamic node a zero-based index by pointer identity, with edges
// de-duplicated as a set on (from, to, kind, clocked).
package export

import (
	"encoding/json"
	"io"

	"github.com/chiseltrace/chiseltrace-go/internal/depstate"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// RelatedSignal mirrors pdgspec.RelatedSignal in the exported schema.
type RelatedSignal struct {
	SignalPath string `json:"signalPath"`
	FieldPath  string `json:"fieldPath"`
}

// Vertex is one exported dynamic node.
type Vertex struct {
	File               string           `json:"file"`
	Line               uint32           `json:"line"`
	Char               uint32           `json:"char"`
	Name               string           `json:"name"`
	Kind               pdgspec.NodeKind `json:"kind"`
	Clocked            bool             `json:"clocked"`
	RelatedSignal      *RelatedSignal   `json:"relatedSignal,omitempty"`
	SimData            json.RawMessage  `json:"simData,omitempty"`
	Timestamp          int64            `json:"timestamp"`
	IsChiselAssignment bool             `json:"isChiselAssignment"`
	ModulePath         []string         `json:"modulePath,omitempty"`
}

// Edge is one exported, de-duplicated dependency edge.
type Edge struct {
	From    int             `json:"from"`
	To      int             `json:"to"`
	Kind    pdgspec.EdgeKind `json:"kind"`
	Clocked bool            `json:"clocked"`
}

// Document is the full exported DPDG.
type Document struct {
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

type edgeKey struct {
	from, to int
	kind     pdgspec.EdgeKind
	clocked  bool
}

// Build performs the iterative DFS from root, producing the exported
// document. The index map is the O(1) identity->index lookup the builder
// needs to keep export linear in the number of distinct dynamic nodes
// rather than their (potentially much larger) reference count.
func Build(root *depstate.DynNode) *Document {
	doc := &Document{}
	if root == nil {
		return doc
	}

	index := make(map[*depstate.DynNode]int)
	seenEdges := make(map[edgeKey]struct{})

	stack := []*depstate.DynNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := index[n]; ok {
			continue
		}
		idx := len(doc.Vertices)
		index[n] = idx
		doc.Vertices = append(doc.Vertices, vertexOf(n))

		// Dependencies are pushed after the index assignment but their
		// edges are only recordable once both endpoints have an index;
		// a second pass below fixes up edges instead of requiring
		// children to be indexed before parents.
		for _, d := range n.Deps {
			stack = append(stack, d.Node)
		}
	}

	// Edge pass: every node's index is now known, so edges can be
	// resolved and de-duplicated in a single linear scan of the arena
	// discovered above (no re-traversal of the dynamic graph).
	for n, fromIdx := range index {
		for _, d := range n.Deps {
			toIdx, ok := index[d.Node]
			if !ok {
				continue
			}
			key := edgeKey{from: fromIdx, to: toIdx, kind: d.Kind, clocked: d.Node.Spec.Clocked}
			if _, dup := seenEdges[key]; dup {
				continue
			}
			seenEdges[key] = struct{}{}
			doc.Edges = append(doc.Edges, Edge{From: fromIdx, To: toIdx, Kind: d.Kind, Clocked: d.Node.Spec.Clocked})
		}
	}

	return doc
}

func vertexOf(n *depstate.DynNode) Vertex {
	v := n.Spec
	out := Vertex{
		File:               v.File,
		Line:               v.Line,
		Char:               v.Char,
		Name:               v.Name,
		Kind:               v.Kind,
		Clocked:            v.Clocked,
		Timestamp:          n.Timestamp,
		IsChiselAssignment: v.IsChiselStatement,
	}
	if v.RelatedSignal != nil {
		out.RelatedSignal = &RelatedSignal{
			SignalPath: v.RelatedSignal.SignalPath,
			FieldPath:  v.RelatedSignal.FieldPath,
		}
	}
	return out
}

// WriteJSON marshals doc to w as indented JSON, matching the output shape
// consumed downstream by the injection and conversion passes.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON reads a previously exported Document back, the counterpart the
// convert and inject subcommands use since they run as a second pass over
// this package's own output format rather than the builder.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
