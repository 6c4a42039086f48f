// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package siminject replays a VCD waveform against an already-exported DPDG
// and stamps each vertex's simData with the raw bit string its related
// signal held at that vertex's timestamp.
//
// This is a second, independent pass over a VCD — it never runs inside the
// dpdg.Builder's cycle loop. The original tool resolved a typed value
// representation (bools, bundles, ground fields) through tywaves/hgldd
// type metadata; no Go hgldd/tywaves parser exists in this project's
// dependency set, so simData here is the raw VCD bit string for the
// exact (signalPath, fieldPath) the vertex names, not a decoded type. See
// DESIGN.md for that simplification.
//
// A second, narrower consequence of reusing vcdreader.Reader rather than a
// tywaves-style VCD rewriter: vcdreader only records vector ("b...")
// changes for probe_-bound signals (§4.1); a plain multi-bit related
// signal's value changes are therefore invisible here; only single-bit
// related signals are populated. See DESIGN.md.
package siminject

import (
	"encoding/json"

	"github.com/chiseltrace/chiseltrace-go/internal/export"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
)

// CycleSource is the subset of *vcdreader.Reader siminject drives; the
// same shape dpdg.CycleSource uses, so a fake source can stand in for
// tests without touching a real VCD file.
type CycleSource interface {
	CurrentTime() uint64
	ReadCycleChanges() (changes []vcdreader.ValueChange, eof bool, err error)
	FindVar(hierarchy string) (vcdreader.IDCode, error)
}

// Inject walks vcd cycle-by-cycle and, for every vertex in doc whose
// RelatedSignal is set, records the signal's most recently observed raw
// value (as of that vertex's Timestamp) into the vertex's SimData field.
// Vertices with no RelatedSignal, or whose signal is never resolved, are
// left untouched.
func Inject(doc *export.Document, vcd CycleSource) error {
	nodesByTimestamp := make(map[int64][]*export.Vertex)
	pathIDs := make(map[string]vcdreader.IDCode)

	for i := range doc.Vertices {
		v := &doc.Vertices[i]
		if v.RelatedSignal == nil {
			continue
		}
		nodesByTimestamp[v.Timestamp] = append(nodesByTimestamp[v.Timestamp], v)
		if _, ok := pathIDs[v.RelatedSignal.SignalPath]; ok {
			continue
		}
		id, err := vcd.FindVar(v.RelatedSignal.SignalPath)
		if err != nil {
			// A vertex referencing a signal the rewritten VCD doesn't
			// carry is not fatal to the rest of the injection pass.
			continue
		}
		pathIDs[v.RelatedSignal.SignalPath] = id
	}

	idPaths := make(map[vcdreader.IDCode][]string, len(pathIDs))
	for path, id := range pathIDs {
		idPaths[id] = append(idPaths[id], path)
	}

	values := make(map[string]vcdreader.Value)

	for {
		changes, eof, err := vcd.ReadCycleChanges()
		if err != nil {
			return err
		}
		for _, c := range changes {
			for _, path := range idPaths[c.ID] {
				values[path] = c.Value
			}
		}

		tau := int64(vcd.CurrentTime()) - 1
		for _, node := range nodesByTimestamp[tau] {
			v, ok := values[node.RelatedSignal.SignalPath]
			if !ok {
				continue
			}
			node.SimData = encodeSimData(v)
		}

		if eof {
			break
		}
	}

	return nil
}

func encodeSimData(v vcdreader.Value) json.RawMessage {
	var s string
	switch v {
	case vcdreader.V0:
		s = "0"
	case vcdreader.V1:
		s = "1"
	case vcdreader.VZ:
		s = "z"
	default:
		s = "x"
	}
	b, _ := json.Marshal(s)
	return b
}
