// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
	"github.com/chiseltrace/chiseltrace-go/internal/vcdreader"
)

type fakeResolver struct {
	byName map[string]vcdreader.IDCode
}

func (f fakeResolver) FindVar(name string) (vcdreader.IDCode, error) {
	id, ok := f.byName[name]
	if !ok {
		return "", assert.AnError
	}
	return id, nil
}

func TestInit_ResolvesInOrder(t *testing.T) {
	preds := []pdgspec.Vertex{
		{Name: "probe_sel"},
		{Name: "probe_alt"},
	}
	resolver := fakeResolver{byName: map[string]vcdreader.IDCode{
		"probe_sel": "a",
		"probe_alt": "b",
	}}

	s, err := Init(preds, resolver)
	require.NoError(t, err)
	assert.False(t, s.Asserted(0))
	assert.False(t, s.Asserted(1))
}

func TestInit_UnresolvedPredicateFails(t *testing.T) {
	preds := []pdgspec.Vertex{{Name: "probe_missing"}}
	resolver := fakeResolver{byName: map[string]vcdreader.IDCode{}}

	_, err := Init(preds, resolver)
	assert.Error(t, err)
}

func TestUpdate_AssertsOnV1(t *testing.T) {
	preds := []pdgspec.Vertex{{Name: "probe_sel"}}
	resolver := fakeResolver{byName: map[string]vcdreader.IDCode{"probe_sel": "a"}}
	s, err := Init(preds, resolver)
	require.NoError(t, err)

	s.Update([]vcdreader.ValueChange{{ID: "a", Value: vcdreader.V1}})
	assert.True(t, s.Asserted(0))

	s.Update([]vcdreader.ValueChange{{ID: "a", Value: vcdreader.V0}})
	assert.False(t, s.Asserted(0))
}

func TestUpdate_IgnoresUnknownIDs(t *testing.T) {
	preds := []pdgspec.Vertex{{Name: "probe_sel"}}
	resolver := fakeResolver{byName: map[string]vcdreader.IDCode{"probe_sel": "a"}}
	s, err := Init(preds, resolver)
	require.NoError(t, err)

	s.Update([]vcdreader.ValueChange{{ID: "zzz", Value: vcdreader.V1}})
	assert.False(t, s.Asserted(0))
}

func TestAsserted_OutOfRangeIsFalse(t *testing.T) {
	s, err := Init(nil, fakeResolver{byName: map[string]vcdreader.IDCode{}})
	require.NoError(t, err)
	assert.False(t, s.Asserted(0))
	assert.False(t, s.Asserted(99))
}
