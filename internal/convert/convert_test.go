// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

func TestConvert_MergesSameLineSameTimestamp(t *testing.T) {
	doc := &export.Document{
		Vertices: []export.Vertex{
			{File: "a.scala", Line: 10, Name: "tmp1", Kind: pdgspec.Connection, Timestamp: 1, Clocked: false},
			{File: "a.scala", Line: 10, Name: "x", Kind: pdgspec.Connection, Timestamp: 1, Clocked: false, IsChiselAssignment: true},
		},
		Edges: []export.Edge{
			{From: 1, To: 0, Kind: pdgspec.Data, Clocked: false},
		},
	}

	out := Convert(doc, Options{})
	require.Len(t, out.Vertices, 1, "both vertices share (file,line,groupTimestamp) and a connecting edge, so they merge")
	assert.Equal(t, "x", out.Vertices[0].Name, "the chisel-assignment vertex's name wins")
	assert.Empty(t, out.Edges, "the merged intra-group edge disappears")
}

func TestConvert_KeepsDistinctLinesSeparate(t *testing.T) {
	doc := &export.Document{
		Vertices: []export.Vertex{
			{File: "a.scala", Line: 10, Name: "a", Kind: pdgspec.Connection, Timestamp: 0, Clocked: false, IsChiselAssignment: true},
			{File: "a.scala", Line: 20, Name: "b", Kind: pdgspec.Connection, Timestamp: 0, Clocked: false, IsChiselAssignment: true},
		},
		Edges: []export.Edge{
			{From: 1, To: 0, Kind: pdgspec.Data, Clocked: false},
		},
	}

	out := Convert(doc, Options{})
	require.Len(t, out.Vertices, 2)
	require.Len(t, out.Edges, 1)
}

func TestConvert_RedirectsIndexEdgeThroughProbe(t *testing.T) {
	doc := &export.Document{
		Vertices: []export.Vertex{
			{File: "a.scala", Line: 1, Name: "mem_w", Kind: pdgspec.Connection, Timestamp: 0, IsChiselAssignment: true},
			{File: "a.scala", Line: 2, Name: "probe_addr", Kind: pdgspec.Connection, Timestamp: 0},
			{File: "a.scala", Line: 3, Name: "addr_src", Kind: pdgspec.Connection, Timestamp: 0, IsChiselAssignment: true},
		},
		Edges: []export.Edge{
			{From: 0, To: 1, Kind: pdgspec.Index, Clocked: false},
			{From: 1, To: 2, Kind: pdgspec.Data, Clocked: false},
		},
	}

	out := Convert(doc, Options{})
	require.Len(t, out.Vertices, 2, "the probe vertex is filtered out of the merged graph")

	require.Len(t, out.Edges, 1)
	assert.Equal(t, pdgspec.Index, out.Edges[0].Kind, "the redirected edge keeps the Index kind, skipping the probe hop")
}

func TestConvert_VerboseNameFormat(t *testing.T) {
	doc := &export.Document{
		Vertices: []export.Vertex{
			{File: "pkg/a.scala", Line: 7, Name: "y", Kind: pdgspec.Connection, Timestamp: 3, IsChiselAssignment: true},
		},
	}

	out := Convert(doc, Options{VerboseName: true})
	require.Len(t, out.Vertices, 1)
	assert.Equal(t, "y at t=3 (a.scala:7)", out.Vertices[0].Name)
}

func TestConvert_SplitsUnconnectedVerticesInSameGroup(t *testing.T) {
	doc := &export.Document{
		Vertices: []export.Vertex{
			{File: "a.scala", Line: 5, Name: "p", Kind: pdgspec.Connection, Timestamp: 0, IsChiselAssignment: true},
			{File: "a.scala", Line: 5, Name: "q", Kind: pdgspec.Connection, Timestamp: 0, IsChiselAssignment: true},
		},
	}

	out := Convert(doc, Options{})
	assert.Len(t, out.Vertices, 2, "no edge connects p and q, so sharing a (file,line,ts) key is not enough to merge them")
}
