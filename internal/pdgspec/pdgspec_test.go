// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pdgspec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "vertices": [
    {"file":"a.scala","line":1,"char":0,"name":"a","kind":"IO","clocked":false,"assignsTo":"a","isChiselStatement":true,"assignDelay":0},
    {"file":"b.scala","line":2,"char":0,"name":"b","kind":"Connection","clocked":false,"assignsTo":"b","isChiselStatement":true,"assignDelay":0}
  ],
  "edges": [
    {"from":1,"to":0,"kind":"Data","clocked":false}
  ],
  "predicates": [],
  "cfg": [
    {"stmtRef":0},
    {"stmtRef":1}
  ]
}`

func TestDecode_Basic(t *testing.T) {
	pdg, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, pdg.Vertices, 2)
	require.Len(t, pdg.Edges, 1)

	assert.Equal(t, IO, pdg.Vertices[0].Kind)
	assert.Equal(t, Connection, pdg.Vertices[1].Kind)
	assert.Equal(t, Data, pdg.Edges[0].Kind)
	require.NotNil(t, pdg.Vertices[0].AssignsTo)
	assert.Equal(t, "a", *pdg.Vertices[0].AssignsTo)
}

func TestDecode_BuildsEdgeIndex(t *testing.T) {
	pdg, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.Len(t, pdg.EdgesByFrom[1], 1)
	assert.Len(t, pdg.EdgesByTo[0], 1)
	assert.Empty(t, pdg.EdgesByFrom[0])
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{not json`))
	require.Error(t, err)
}

func TestDecode_UnknownFieldsTolerated(t *testing.T) {
	doc := `{"vertices":[],"edges":[],"predicates":[],"cfg":[],"extra":"ignored"}`
	pdg, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, pdg.Vertices)
}

func TestDecode_UnknownNodeKind(t *testing.T) {
	doc := `{"vertices":[{"file":"x","line":0,"char":0,"name":"x","kind":"Bogus","clocked":false,"isChiselStatement":false,"assignDelay":0}],"edges":[],"predicates":[],"cfg":[]}`
	_, err := Decode(strings.NewReader(doc))
	require.Error(t, err)
}

func TestNodeKind_RoundTrip(t *testing.T) {
	for _, k := range []NodeKind{Definition, DataDefinition, IO, Connection, ControlFlow} {
		b, err := json.Marshal(k)
		require.NoError(t, err)

		var got NodeKind
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, k, got)
	}
}

func TestEdgeKind_RoundTrip(t *testing.T) {
	for _, k := range []EdgeKind{Data, Conditional, Declaration, Index} {
		b, err := json.Marshal(k)
		require.NoError(t, err)

		var got EdgeKind
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, k, got)
	}
}

func TestCFGNode_IsFork(t *testing.T) {
	leaf := CFGNode{StmtRef: 0}
	assert.False(t, leaf.IsFork())

	pred := uint32(5)
	fork := CFGNode{StmtRef: 1, PredStmtRef: &pred}
	assert.True(t, fork.IsFork())
}

func TestVertexByIndex(t *testing.T) {
	pdg, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	v, err := pdg.VertexByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Name)

	_, err = pdg.VertexByIndex(99)
	assert.Error(t, err)
}

func TestReindex_AfterMutation(t *testing.T) {
	pdg, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	pdg.Edges = append(pdg.Edges, Edge{From: 0, To: 1, Kind: Conditional})
	pdg.Reindex()

	assert.Len(t, pdg.EdgesByFrom[0], 1)
	assert.Equal(t, Conditional, pdg.EdgesByFrom[0][0].Kind)
}
