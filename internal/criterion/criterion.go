// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package criterion parses the slicing-criterion argument: a two-form
// tagged string, "statement:<name>" or "signal:<symbol>". This is not a
// query language — comparison against dynamic nodes is always exact on
// the parsed payload.
package criterion

import (
	"strings"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
)

// Kind distinguishes the two criterion forms.
type Kind int

const (
	// Statement matches a dynamic node whose static spec name equals Name.
	Statement Kind = iota
	// Signal resolves to the live dependency-state entry for the symbol
	// Name at the end of the stream.
	Signal
)

func (k Kind) String() string {
	if k == Signal {
		return "signal"
	}
	return "statement"
}

// Criterion is the parsed slicing target.
type Criterion struct {
	Kind Kind
	Name string
}

// Parse splits "statement:<name>" or "signal:<symbol>" into a Criterion.
// Any other shape, or an empty name, is a BadCriterion.
func Parse(s string) (Criterion, error) {
	tag, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return Criterion{}, chiserr.NewCriterionError(s, nil)
	}
	switch tag {
	case "statement":
		return Criterion{Kind: Statement, Name: name}, nil
	case "signal":
		return Criterion{Kind: Signal, Name: name}, nil
	default:
		return Criterion{}, chiserr.NewCriterionError(s, nil)
	}
}

// Matches reports whether a created dynamic node (identified by its
// static spec name and, if any, the symbol it assigns) satisfies c.
func (c Criterion) Matches(specName string, assignsTo *string) bool {
	switch c.Kind {
	case Statement:
		return specName == c.Name
	case Signal:
		return assignsTo != nil && *assignsTo == c.Name
	default:
		return false
	}
}
