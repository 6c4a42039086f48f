// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package convert collapses an exported DPDG from FIRRTL-statement
// granularity down to source-statement granularity: vertices sharing a
// (file, line, clocked-shifted-timestamp) key are merged into one node,
// and Index edges are redirected through whatever chain of probe vertices
// they pass through so the merged graph never references a removed probe.
//
// This is a post-processing pass over internal/export's JSON schema, not
// a code path the DPDG builder ever calls.
package convert

import (
	"sort"
	"strconv"
	"strings"

	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// Options controls node naming in the converted output.
type Options struct {
	// VerboseName renders "<name> at t=<timestamp> (<file>:<line>)"
	// instead of the bare statement name.
	VerboseName bool
}

type groupKey struct {
	file string
	line uint32
	ts   int64
}

// isProbe reports whether a vertex is a predicate-probe wire rather than
// a real statement — names beginning with "probe_" are reused here as
// the merge pass's only signal for "intermediate index-addressing node",
// since this codebase has no separate "defnode_probe" vertex kind.
func isProbe(v export.Vertex) bool {
	return strings.HasPrefix(v.Name, "probe_")
}

func keyOf(v export.Vertex) groupKey {
	ts := v.Timestamp
	if !v.Clocked {
		ts++
	}
	return groupKey{file: v.File, line: v.Line, ts: ts}
}

// Convert performs the source-grouping pass described above, returning a
// new Document; doc is not mutated.
func Convert(doc *export.Document, opts Options) *export.Document {
	redirected := redirectIndexEdges(doc)

	edgesByFrom := make(map[int][]export.Edge)
	edgesByTo := make(map[int][]export.Edge)
	for _, e := range redirected {
		edgesByFrom[e.From] = append(edgesByFrom[e.From], e)
		edgesByTo[e.To] = append(edgesByTo[e.To], e)
	}

	rawGroupOf := splitGroups(doc, redirected, edgesByFrom, edgesByTo)

	rawGroupCount := 0
	for _, g := range rawGroupOf {
		if g+1 > rawGroupCount {
			rawGroupCount = g + 1
		}
	}
	rawMembers := make([][]int, rawGroupCount)
	for oldIdx, g := range rawGroupOf {
		rawMembers[g] = append(rawMembers[g], oldIdx)
	}

	// Probe vertices were given their own singleton raw groups purely so
	// every vertex has a valid entry in rawGroupOf; drop those groups
	// entirely from the output rather than emitting a vertex for them.
	finalOf := make([]int, len(rawGroupOf))
	for i := range finalOf {
		finalOf[i] = -1
	}
	var groupedMembers [][]int
	for _, members := range rawMembers {
		if len(members) == 0 {
			continue
		}
		allProbe := true
		for _, m := range members {
			if !isProbe(doc.Vertices[m]) {
				allProbe = false
				break
			}
		}
		if allProbe {
			continue
		}
		g := len(groupedMembers)
		groupedMembers = append(groupedMembers, members)
		for _, m := range members {
			finalOf[m] = g
		}
	}
	groupOf := finalOf

	out := &export.Document{Vertices: make([]export.Vertex, len(groupedMembers))}
	for g, members := range groupedMembers {
		out.Vertices[g] = mergeVertex(doc, members, opts)
	}

	type edgeKey struct {
		from, to int
		kind     pdgspec.EdgeKind
		clocked  bool
	}
	seen := make(map[edgeKey]bool)
	for _, e := range redirected {
		if isProbe(doc.Vertices[e.From]) {
			continue
		}
		from, to := groupOf[e.From], groupOf[e.To]
		if from == -1 || to == -1 || from == to {
			continue
		}
		clocked := out.Vertices[from].Clocked
		key := edgeKey{from: from, to: to, kind: e.Kind, clocked: clocked}
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Edges = append(out.Edges, export.Edge{From: from, To: to, Kind: e.Kind, Clocked: clocked})
	}

	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].From != out.Edges[j].From {
			return out.Edges[i].From < out.Edges[j].From
		}
		return out.Edges[i].To < out.Edges[j].To
	})

	return out
}

// redirectIndexEdges replaces every Index edge e with one Index edge from
// e.From to the target of each Data edge reachable by following the chain
// of Index edges out of e.To (squashing multi-hop index addressing through
// probe vertices into a single direct edge), and drops non-Index edges
// that originate at a probe vertex.
func redirectIndexEdges(doc *export.Document) []export.Edge {
	edgesByFrom := make(map[int][]export.Edge)
	for _, e := range doc.Edges {
		edgesByFrom[e.From] = append(edgesByFrom[e.From], e)
	}

	var out []export.Edge
	for _, e := range doc.Edges {
		if e.Kind != pdgspec.Index {
			if !isProbe(doc.Vertices[e.From]) {
				out = append(out, e)
			}
			continue
		}

		stack := []export.Edge{e}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, next := range edgesByFrom[cur.To] {
				if next.Kind == pdgspec.Data {
					out = append(out, export.Edge{From: e.From, To: next.To, Kind: pdgspec.Index, Clocked: e.Clocked})
				} else if next.Kind == pdgspec.Index {
					stack = append(stack, next)
				}
			}
		}
	}
	return out
}

// splitGroups assigns every non-probe vertex a group index: vertices
// sharing a groupKey are merged unless the group, followed through its
// own internal (non-Index) edges, splits into more than one connected
// component — the split-compound-signal case noted in the original
// conversion pass.
func splitGroups(doc *export.Document, edges []export.Edge, edgesByFrom, edgesByTo map[int][]export.Edge) []int {
	byKey := make(map[groupKey][]int)
	for i, v := range doc.Vertices {
		if isProbe(v) {
			continue
		}
		k := keyOf(v)
		byKey[k] = append(byKey[k], i)
	}

	groupOf := make([]int, len(doc.Vertices))
	for i := range groupOf {
		groupOf[i] = -1
	}

	next := 0
	keys := make([]groupKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].file != keys[j].file {
			return keys[i].file < keys[j].file
		}
		if keys[i].line != keys[j].line {
			return keys[i].line < keys[j].line
		}
		return keys[i].ts < keys[j].ts
	})

	for _, k := range keys {
		members := byKey[k]
		memberSet := make(map[int]bool, len(members))
		for _, m := range members {
			memberSet[m] = true
		}
		remaining := make(map[int]bool, len(members))
		for _, m := range members {
			remaining[m] = true
		}

		sort.Ints(members)
		for _, start := range members {
			if !remaining[start] {
				continue
			}
			stack := []int{start}
			delete(remaining, start)
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				groupOf[cur] = next

				for _, e := range edgesByFrom[cur] {
					if e.Kind == pdgspec.Index {
						continue
					}
					if memberSet[e.To] && remaining[e.To] {
						delete(remaining, e.To)
						stack = append(stack, e.To)
					}
				}
				for _, e := range edgesByTo[cur] {
					if e.Kind == pdgspec.Index {
						continue
					}
					if memberSet[e.From] && remaining[e.From] {
						delete(remaining, e.From)
						stack = append(stack, e.From)
					}
				}
			}
			next++
		}
	}

	// Probe vertices were excluded from grouping above; give each its own
	// singleton group so every index into groupOf stays valid (these
	// groups are pruned from the output by the all-probe group check in
	// Convert, but never from groupOf itself).
	for i, v := range doc.Vertices {
		if isProbe(v) {
			groupOf[i] = next
			next++
		}
	}

	return groupOf
}

func mergeVertex(doc *export.Document, members []int, opts Options) export.Vertex {
	sort.Ints(members)

	var primary *export.Vertex
	containsIO, containsData, containsCond := false, false, false
	for _, m := range members {
		v := doc.Vertices[m]
		switch v.Kind {
		case pdgspec.IO:
			containsIO = true
		case pdgspec.DataDefinition, pdgspec.Connection:
			containsData = true
		case pdgspec.ControlFlow:
			containsCond = true
		}
		if v.IsChiselAssignment && primary == nil {
			p := v
			primary = &p
		}
	}

	v0 := doc.Vertices[members[0]]

	kind := pdgspec.Definition
	switch {
	case primary != nil:
		kind = primary.Kind
	case containsIO:
		kind = pdgspec.IO
	case containsData:
		kind = pdgspec.Connection
	case containsCond:
		kind = pdgspec.ControlFlow
	}

	name := shortFile(v0.File) + ":" + strconv.FormatUint(uint64(v0.Line), 10)
	if primary != nil {
		if opts.VerboseName {
			name = primary.Name + " at t=" + strconv.FormatInt(primary.Timestamp, 10) +
				" (" + shortFile(primary.File) + ":" + strconv.FormatUint(uint64(primary.Line), 10) + ")"
		} else {
			name = primary.Name
		}
	}

	out := v0
	out.Name = name
	out.Kind = kind
	return out
}

func shortFile(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
