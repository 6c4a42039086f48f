// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pdgspec decodes the static Program Dependence Graph JSON document
// and pre-indexes its edges by endpoint, so the DPDG builder never does a
// linear scan of the edge list per statement per cycle.
package pdgspec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
)

// NodeKind classifies a static vertex.
type NodeKind int

const (
	Definition NodeKind = iota
	DataDefinition
	IO
	Connection
	ControlFlow
)

func (k NodeKind) String() string {
	switch k {
	case Definition:
		return "Definition"
	case DataDefinition:
		return "DataDefinition"
	case IO:
		return "IO"
	case Connection:
		return "Connection"
	case ControlFlow:
		return "ControlFlow"
	default:
		return "Unknown"
	}
}

func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Definition":
		*k = Definition
	case "DataDefinition":
		*k = DataDefinition
	case "IO":
		*k = IO
	case "Connection":
		*k = Connection
	case "ControlFlow":
		*k = ControlFlow
	default:
		return fmt.Errorf("pdgspec: unknown node kind %q", s)
	}
	return nil
}

// EdgeKind classifies a static dependency edge.
type EdgeKind int

const (
	Data EdgeKind = iota
	Conditional
	Declaration
	Index
)

func (k EdgeKind) String() string {
	switch k {
	case Data:
		return "Data"
	case Conditional:
		return "Conditional"
	case Declaration:
		return "Declaration"
	case Index:
		return "Index"
	default:
		return "Unknown"
	}
}

func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Data":
		*k = Data
	case "Conditional":
		*k = Conditional
	case "Declaration":
		*k = Declaration
	case "Index":
		*k = Index
	default:
		return fmt.Errorf("pdgspec: unknown edge kind %q", s)
	}
	return nil
}

// RelatedSignal points a vertex at the HDL signal/field it represents.
type RelatedSignal struct {
	SignalPath string `json:"signalPath"`
	FieldPath  string `json:"fieldPath"`
}

// Condition is a conjunction: every probe named in ProbeName must equal the
// value at the same index in ProbeValue.
type Condition struct {
	ProbeName  []string `json:"probeName"`
	ProbeValue []uint64 `json:"probeValue"`
}

// Vertex is a single static PDG node: one HDL statement or declaration.
type Vertex struct {
	File              string         `json:"file"`
	Line              uint32         `json:"line"`
	Char              uint32         `json:"char"`
	Name              string         `json:"name"`
	Kind              NodeKind       `json:"kind"`
	Clocked           bool           `json:"clocked"`
	AssignsTo         *string        `json:"assignsTo,omitempty"`
	IsChiselStatement bool           `json:"isChiselStatement"`
	Condition         *Condition     `json:"condition,omitempty"`
	AssignDelay       uint32         `json:"assignDelay"`
	RelatedSignal     *RelatedSignal `json:"relatedSignal,omitempty"`
}

// Edge is a static dependency edge: From depends on To (the arrow points at
// the provider).
type Edge struct {
	From      uint32     `json:"from"`
	To        uint32     `json:"to"`
	Kind      EdgeKind   `json:"kind"`
	Clocked   bool       `json:"clocked"`
	Condition *Condition `json:"condition,omitempty"`
}

// CFGNode is one node of the static control-flow forest: a tagged union of
// Leaf (no PredStmtRef) and Fork (PredStmtRef set, branches populated).
type CFGNode struct {
	StmtRef     uint32     `json:"stmtRef"`
	PredStmtRef *uint32    `json:"predStmtRef,omitempty"`
	TrueBranch  []CFGNode  `json:"trueBranch,omitempty"`
	FalseBranch []CFGNode  `json:"falseBranch,omitempty"`
}

// IsFork reports whether this node carries a predicate (a branch point)
// rather than being a plain leaf statement.
func (n CFGNode) IsFork() bool { return n.PredStmtRef != nil }

// PDG is the fully decoded, pre-indexed static Program Dependence Graph.
type PDG struct {
	Vertices   []Vertex  `json:"vertices"`
	Edges      []Edge    `json:"edges"`
	Predicates []Vertex  `json:"predicates"`
	CFG        []CFGNode `json:"cfg"`

	// EdgesByFrom and EdgesByTo are built once by index (via Decode or
	// Reindex) and consulted by
	// the builder every cycle; never recomputed per-statement.
	EdgesByFrom map[uint32][]Edge `json:"-"`
	EdgesByTo   map[uint32][]Edge `json:"-"`
}

// Decode reads a static PDG JSON document from r. Unknown fields are
// tolerated (no DisallowUnknownFields); encoding/json has no recursion
// depth limit, so CFG forests of 128+ levels decode unmodified.
func Decode(r io.Reader) (*PDG, error) {
	dec := json.NewDecoder(r)
	var pdg PDG
	if err := dec.Decode(&pdg); err != nil {
		return nil, chiserr.NewPDGError("json decode", err)
	}
	pdg.index()
	return &pdg, nil
}

// index builds EdgesByFrom/EdgesByTo. Called automatically by Decode;
// exported via Reindex for callers that construct a PDG value directly
// (tests and staticslice.Slice).
func (p *PDG) index() {
	p.EdgesByFrom = make(map[uint32][]Edge, len(p.Edges))
	p.EdgesByTo = make(map[uint32][]Edge, len(p.Edges))
	for _, e := range p.Edges {
		p.EdgesByFrom[e.From] = append(p.EdgesByFrom[e.From], e)
		p.EdgesByTo[e.To] = append(p.EdgesByTo[e.To], e)
	}
}

// Reindex rebuilds the edge indexes. Call after mutating Edges directly.
func (p *PDG) Reindex() { p.index() }

// VertexByIndex returns the vertex at the given static index (its position
// in Vertices, which doubles as its stable ID referenced by Edge.From/To).
func (p *PDG) VertexByIndex(idx uint32) (*Vertex, error) {
	if int(idx) >= len(p.Vertices) {
		return nil, chiserr.NewPDGError(fmt.Sprintf("vertex index %d out of range", idx), nil)
	}
	return &p.Vertices[idx], nil
}
