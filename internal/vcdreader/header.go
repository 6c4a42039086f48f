// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vcdreader

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// IDCode is a raw VCD signal identifier (the short, non-whitespace token
// used in $var declarations and value-change lines). Multiple hierarchical
// paths may share one IDCode when the signals are tied together.
type IDCode string

// varDecl is one $var declaration: its full dotted scope path and code.
type varDecl struct {
	path []string
	code IDCode
}

// header holds every $var declaration seen before $enddefinitions, in
// declaration order, with full scope paths resolved.
type header struct {
	vars []varDecl
}

// findVar returns the IDCode for the exact dotted scope path, if declared.
func (h *header) findVar(path []string) (IDCode, bool) {
	for _, v := range h.vars {
		if pathEqual(v.path, path) {
			return v.code, true
		}
	}
	return "", false
}

// findProbesUnder returns, for every variable under root whose reference
// (final path component) begins with "probe_", the IDCode -> hierarchical
// path(s) relative to root. A single IDCode may back several probe paths
// when multiple signals share a VCD identifier.
func (h *header) findProbesUnder(root []string) map[IDCode][]string {
	probes := make(map[IDCode][]string)
	for _, v := range h.vars {
		if !hasPrefix(v.path, root) {
			continue
		}
		rel := v.path[len(root):]
		if len(rel) == 0 {
			continue
		}
		if !strings.HasPrefix(rel[len(rel)-1], "probe_") {
			continue
		}
		probePath := strings.Join(rel, ".")
		probes[v.code] = append(probes[v.code], probePath)
	}
	return probes
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}

// wordTokenizer reads whitespace-delimited tokens from a bufio.Reader. It
// is used only for the declarations section of a VCD file: $scope/$var/
// $enddefinitions commands are all whitespace-tokenized regardless of how
// they're wrapped across lines.
type wordTokenizer struct {
	br *bufio.Reader
}

func isVCDSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (t *wordTokenizer) next() (string, error) {
	var b byte
	var err error

	// Skip leading whitespace.
	for {
		b, err = t.br.ReadByte()
		if err != nil {
			return "", err
		}
		if !isVCDSpace(b) {
			break
		}
	}

	var sb strings.Builder
	sb.WriteByte(b)
	for {
		b, err = t.br.ReadByte()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if isVCDSpace(b) {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
}

// parseHeader consumes the $timescale/$scope/$var/... declarations section
// up through $enddefinitions $end, building the flat variable table.
//
// This is a hand-rolled, purpose-built subset of the VCD grammar covering
// only the constructs a synthesizable-design waveform actually emits.
func parseHeader(br *bufio.Reader) (*header, error) {
	tok := &wordTokenizer{br: br}
	h := &header{}
	var scopeStack []string

	consumeUntilEnd := func() error {
		for {
			w, err := tok.next()
			if err != nil {
				return err
			}
			if w == "$end" {
				return nil
			}
		}
	}

	for {
		w, err := tok.next()
		if err == io.EOF {
			return nil, fmt.Errorf("vcd header: unexpected EOF before $enddefinitions")
		}
		if err != nil {
			return nil, err
		}

		switch w {
		case "$scope":
			if _, err := tok.next(); err != nil { // scope kind (module/begin/...)
				return nil, err
			}
			name, err := tok.next()
			if err != nil {
				return nil, err
			}
			if err := consumeUntilEnd(); err != nil {
				return nil, err
			}
			scopeStack = append(scopeStack, name)

		case "$upscope":
			if err := consumeUntilEnd(); err != nil {
				return nil, err
			}
			if len(scopeStack) > 0 {
				scopeStack = scopeStack[:len(scopeStack)-1]
			}

		case "$var":
			if _, err := tok.next(); err != nil { // var type (wire/reg/...)
				return nil, err
			}
			if _, err := tok.next(); err != nil { // size
				return nil, err
			}
			code, err := tok.next()
			if err != nil {
				return nil, err
			}
			reference, err := tok.next()
			if err != nil {
				return nil, err
			}
			if err := consumeUntilEnd(); err != nil {
				return nil, err
			}
			path := make([]string, 0, len(scopeStack)+1)
			path = append(path, scopeStack...)
			path = append(path, reference)
			h.vars = append(h.vars, varDecl{path: path, code: IDCode(code)})

		case "$enddefinitions":
			if err := consumeUntilEnd(); err != nil {
				return nil, err
			}
			return h, nil

		default:
			if strings.HasPrefix(w, "$") {
				if err := consumeUntilEnd(); err != nil {
					return nil, err
				}
			}
			// Anything not starting with "$" outside a recognized
			// command is stray whitespace-split text inside a command
			// body we've already consumed to $end; ignore it.
		}
	}
}
