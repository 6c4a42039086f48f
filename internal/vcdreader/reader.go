// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vcdreader streams a VCD waveform cycle-by-cycle: a cycle is
// bounded by a rising edge (0->1) on the "clock" signal. It classifies
// each value change as clock, reset, a probe update (buffered separately
// and committed to the live probe map at the next non-rising-edge
// timestamp boundary), or a plain change handed to the caller.
package vcdreader

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
)

// Value is a single VCD scalar value.
type Value int

const (
	V0 Value = iota
	V1
	VX
	VZ
)

func parseValue(c byte) Value {
	switch c {
	case '1':
		return V1
	case '0':
		return V0
	case 'x', 'X':
		return VX
	case 'z', 'Z':
		return VZ
	default:
		return VX
	}
}

// ValueChange is one non-probe, non-clock, non-reset value change observed
// during a cycle; these feed the live predicate state.
type ValueChange struct {
	ID    IDCode
	Value Value
}

type probeChange struct {
	path  string
	value uint64
}

// Reader streams cycles from an open VCD file.
type Reader struct {
	br          *bufio.Reader
	file        *os.File
	hdr         *header
	extraScopes []string

	clock IDCode
	reset IDCode

	currentTime uint64
	clockVal    Value
	resetVal    Value

	changesBuffer []ValueChange
	probes        map[IDCode][]string
	probeValues   map[string]uint64

	probeChangeBuffer []probeChange

	// pendingRisingEdge is set by dispatchScalar when a 0->1 clock
	// transition is observed, and consumed on the same ReadCycleChanges
	// iteration that produced it.
	pendingRisingEdge bool
}

// Open parses the VCD header at path and positions the reader at the start
// of the value-change section. extraScopes is the scope root under which
// "clock", "reset", and every probe_-prefixed signal are resolved.
func Open(path string, extraScopes []string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, chiserr.NewVCDError("open "+path, err)
	}

	br := bufio.NewReaderSize(f, 64*1024)
	hdr, err := parseHeader(br)
	if err != nil {
		f.Close()
		return nil, chiserr.NewVCDError("parse header", err)
	}

	clockPath := appendPath(extraScopes, "clock")
	resetPath := appendPath(extraScopes, "reset")

	clock, ok := hdr.findVar(clockPath)
	if !ok {
		f.Close()
		return nil, chiserr.NewVariableError(strings.Join(clockPath, "."), chiserr.ErrClockNotFound)
	}
	reset, ok := hdr.findVar(resetPath)
	if !ok {
		f.Close()
		return nil, chiserr.NewVariableError(strings.Join(resetPath, "."), chiserr.ErrClockNotFound)
	}

	return &Reader{
		br:          br,
		file:        f,
		hdr:         hdr,
		extraScopes: extraScopes,
		clock:       clock,
		reset:       reset,
		clockVal:    VX,
		resetVal:    VX,
		probes:      hdr.findProbesUnder(extraScopes),
		probeValues: make(map[string]uint64),
	}, nil
}

func appendPath(base []string, last string) []string {
	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	out = append(out, last)
	return out
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// CurrentTime is the reader's zero-based cycle counter.
func (r *Reader) CurrentTime() uint64 { return r.currentTime }

// ResetValue is the most recently observed scalar value of "reset".
func (r *Reader) ResetValue() Value { return r.resetVal }

// FindVar resolves a dotted hierarchy path under the reader's scope root
// (e.g. "submodule.some_signal"), for predicate and related-signal lookups.
func (r *Reader) FindVar(hierarchy string) (IDCode, error) {
	path := appendSplitPath(r.extraScopes, hierarchy)
	code, ok := r.hdr.findVar(path)
	if !ok {
		return "", chiserr.NewVariableError(strings.Join(path, "."), chiserr.ErrVariableNotFound)
	}
	return code, nil
}

func appendSplitPath(base []string, dotted string) []string {
	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	out = append(out, strings.Split(dotted, ".")...)
	return out
}

// ProbeValue returns the live committed value of a probe_-prefixed signal
// path, and whether it has ever been observed.
func (r *Reader) ProbeValue(probePath string) (uint64, bool) {
	v, ok := r.probeValues[probePath]
	return v, ok
}

// ProbeValuesSnapshot returns an independent copy of the live probe-value
// map Π, for the Dependency State's snapshot ring (Σ) to clone alongside S
// on any cycle that enqueues a delayed write.
func (r *Reader) ProbeValuesSnapshot() map[string]uint64 {
	cp := make(map[string]uint64, len(r.probeValues))
	for k, v := range r.probeValues {
		cp[k] = v
	}
	return cp
}

// ReadCycleChanges buffers value changes until the next rising clock edge
// and returns them, advancing CurrentTime by one. eof is true once the
// underlying stream is exhausted; changes may still be non-empty on the
// same call that reports eof.
//
// Grounded on original_source/slicer_lib/src/graphbuilder.rs's
// VcdReader::read_cycle_changes: changes and committed probe values lag
// one timestamp boundary behind the rising edge that closes a cycle, since
// events recorded at the same VCD timestamp as the edge take effect after
// it.
func (r *Reader) ReadCycleChanges() (changes []ValueChange, eof bool, err error) {
	lastTime := r.currentTime
	risingEdgeFound := false
	eofReached := true

	for {
		line, rerr := r.nextLine()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, false, chiserr.NewVCDError("read body", rerr)
		}
		if line == "" {
			continue
		}

		if line[0] == '#' {
			if risingEdgeFound {
				r.currentTime++
				eofReached = false
				break
			}
			changes = append(changes, r.changesBuffer...)
			r.changesBuffer = r.changesBuffer[:0]
			for _, pc := range r.probeChangeBuffer {
				r.probeValues[pc.path] = pc.value
			}
			r.probeChangeBuffer = r.probeChangeBuffer[:0]
			continue
		}

		if line[0] == '$' {
			continue // $dumpvars/$dumpon/$dumpoff/$comment/$end markers
		}

		switch line[0] {
		case 'b', 'B':
			bits, id, ok := splitVector(line[1:])
			if !ok {
				continue
			}
			if IDCode(id) == r.clock || IDCode(id) == r.reset {
				// Clock/reset are always scalar in practice; a vector
				// change on either id is treated as settling to its
				// last (least-significant) bit, matching scalar
				// dispatch below.
				r.dispatchScalar(IDCode(id), bitsToScalar(bits))
				continue
			}
			r.dispatchVector(IDCode(id), bits)
		case 'r', 'R':
			// Real-number changes have no discrete Value and are never
			// clock/reset/probe signals in this domain; ignored, matching
			// the original reader's handling (no match arm for Real).
		default:
			id := IDCode(strings.TrimSpace(line[1:]))
			if id == "" {
				continue
			}
			r.dispatchScalar(id, parseValue(line[0]))
		}

		if risingEdgeFound {
			continue
		}
		if r.pendingRisingEdge {
			risingEdgeFound = true
			r.pendingRisingEdge = false
		}
	}

	if lastTime == r.currentTime {
		r.currentTime++
	}

	return changes, eofReached, nil
}

func (r *Reader) dispatchScalar(id IDCode, v Value) {
	if id == r.clock {
		if r.clockVal == V0 && v == V1 {
			r.pendingRisingEdge = true
		}
		r.clockVal = v
		return
	}
	if id == r.reset {
		r.resetVal = v
		return
	}
	if paths, ok := r.probes[id]; ok {
		uv := uint64(0)
		if v == V1 {
			uv = 1
		}
		for _, p := range paths {
			r.probeChangeBuffer = append(r.probeChangeBuffer, probeChange{path: p, value: uv})
		}
		return
	}
	r.changesBuffer = append(r.changesBuffer, ValueChange{ID: id, Value: v})
}

// dispatchVector handles a vector ("b...") change. Only probe-bound
// vectors are recorded; others are dropped, matching the original reader
// (which has no fallthrough arm for vector changes on non-probe ids).
func (r *Reader) dispatchVector(id IDCode, bits string) {
	paths, ok := r.probes[id]
	if !ok {
		return
	}
	uv := bitsToUnsigned(bits)
	for _, p := range paths {
		r.probeChangeBuffer = append(r.probeChangeBuffer, probeChange{path: p, value: uv})
	}
}

func splitVector(rest string) (bits string, id string, ok bool) {
	i := strings.IndexByte(rest, ' ')
	if i < 0 {
		return "", "", false
	}
	return rest[:i], strings.TrimSpace(rest[i+1:]), true
}

func bitsToScalar(bits string) Value {
	if len(bits) == 0 {
		return VX
	}
	return parseValue(bits[len(bits)-1])
}

// bitsToUnsigned interprets a VCD vector literal (MSB-first) as an
// unsigned integer, accumulating bit weights from the least-significant
// bit outward so any width decodes correctly.
func bitsToUnsigned(bits string) uint64 {
	var val uint64
	var bit uint64 = 1
	for i := len(bits) - 1; i >= 0; i-- {
		if bits[i] == '1' {
			val += bit
		}
		bit <<= 1
	}
	return val
}

func (r *Reader) nextLine() (string, error) {
	line, err := r.br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		return line, nil
	}
	if err != nil {
		return "", err
	}
	return line, nil
}
