// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_ThrottlesBurstsToOneEmit(t *testing.T) {
	var got []Stats
	r := New(nil, time.Hour, func(s Stats) { got = append(got, s) })

	for i := uint64(0); i < 100; i++ {
		r.Report(Stats{Cycle: i})
	}

	require.Len(t, got, 1, "an hour-long period must collapse a tight burst to a single emit")
	assert.Equal(t, uint64(0), got[0].Cycle, "the first call consumes the initial token")
}

func TestReporter_ReportFinalAlwaysEmits(t *testing.T) {
	var got []Stats
	r := New(nil, time.Hour, func(s Stats) { got = append(got, s) })

	r.Report(Stats{Cycle: 0})
	r.Report(Stats{Cycle: 1}) // dropped, rate-limited
	r.ReportFinal(Stats{Cycle: 2})

	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[1].Cycle)
}

func TestLine_FormatsAllFields(t *testing.T) {
	s := Stats{Cycle: 5, NodesTotal: 10, EdgesTotal: 20, DelayedQueued: 1}
	line := Line(s)
	assert.Contains(t, line, "cycle 5")
	assert.Contains(t, line, "nodes 10")
	assert.Contains(t, line, "edges 20")
	assert.Contains(t, line, "delayed 1")
}

func TestModel_UpdateStatsMsgTracksLatest(t *testing.T) {
	m := NewModel()
	next, cmd := m.Update(StatsMsg{Cycle: 3, NodesTotal: 4, EdgesTotal: 5})
	model := next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, uint64(3), model.latest.Cycle)
	assert.Contains(t, model.View(), "building")
}

func TestModel_DoneMsgMarksDoneAndQuits(t *testing.T) {
	m := NewModel()
	next, cmd := m.Update(DoneMsg{Final: Stats{Cycle: 9}})
	model := next.(Model)
	assert.NotNil(t, cmd, "DoneMsg must return tea.Quit")
	assert.True(t, model.done)
	assert.Contains(t, model.View(), "done")
}
