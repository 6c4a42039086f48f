// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vcdreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeVCD writes content to a temp file and returns its path.
func writeVCD(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.vcd")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const basicVCD = `$date today $end
$version gen $end
$timescale 1ns $end
$scope module TOP $end
$var wire 1 ! clock $end
$var wire 1 " reset $end
$var wire 1 # a $end
$var wire 8 $ probe_sel $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
1"
0#
b00000000 $
$end
#5
1!
1#
#10
0!
#15
1!
0"
b00000001 $
#20
0!
#25
1!
`

func TestOpen_FindsClockAndReset(t *testing.T) {
	r, err := Open(writeVCD(t, basicVCD), []string{"TOP"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, IDCode("!"), r.clock)
	assert.Equal(t, IDCode("\""), r.reset)
}

func TestOpen_MissingClock(t *testing.T) {
	doc := `$scope module TOP $end
$var wire 1 " reset $end
$upscope $end
$enddefinitions $end
#0
1"
`
	_, err := Open(writeVCD(t, doc), []string{"TOP"})
	require.Error(t, err)
}

func TestFindVar(t *testing.T) {
	r, err := Open(writeVCD(t, basicVCD), []string{"TOP"})
	require.NoError(t, err)
	defer r.Close()

	code, err := r.FindVar("a")
	require.NoError(t, err)
	assert.Equal(t, IDCode("#"), code)

	_, err = r.FindVar("nonexistent")
	assert.Error(t, err)
}

func TestReadCycleChanges_Basic(t *testing.T) {
	r, err := Open(writeVCD(t, basicVCD), []string{"TOP"})
	require.NoError(t, err)
	defer r.Close()

	// First call: consumes up to and including the rising edge at #5,
	// returns whatever was buffered before that edge (the #0 initial
	// dump's non-probe change: "a" going to 0). current_time becomes 1.
	changes, eof, err := r.ReadCycleChanges()
	require.NoError(t, err)
	assert.False(t, eof)
	assert.Equal(t, uint64(1), r.CurrentTime())

	var sawA bool
	for _, c := range changes {
		if c.ID == IDCode("#") {
			sawA = true
			assert.Equal(t, V0, c.Value)
		}
	}
	assert.True(t, sawA)

	// Probe committed at the #5 boundary (falling/settling before the
	// rising edge) should reflect the initial 0.
	v, ok := r.ProbeValue("probe_sel")
	require.True(t, ok)
	assert.Equal(t, uint64(0), v)
}

func TestReadCycleChanges_AdvancesThroughEOF(t *testing.T) {
	r, err := Open(writeVCD(t, basicVCD), []string{"TOP"})
	require.NoError(t, err)
	defer r.Close()

	var eof bool
	var cycles int
	for !eof && cycles < 20 {
		_, e, err := r.ReadCycleChanges()
		require.NoError(t, err)
		eof = e
		cycles++
	}
	assert.True(t, eof)
	assert.Greater(t, cycles, 0)
}

func TestBitsToUnsigned(t *testing.T) {
	assert.Equal(t, uint64(0), bitsToUnsigned("00000000"))
	assert.Equal(t, uint64(1), bitsToUnsigned("00000001"))
	assert.Equal(t, uint64(255), bitsToUnsigned("11111111"))
	assert.Equal(t, uint64(2), bitsToUnsigned("10"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, V0, parseValue('0'))
	assert.Equal(t, V1, parseValue('1'))
	assert.Equal(t, VX, parseValue('x'))
	assert.Equal(t, VZ, parseValue('z'))
	assert.Equal(t, VX, parseValue('q'))
}

func TestFindProbesUnder_MultiplePaths(t *testing.T) {
	doc := `$scope module TOP $end
$var wire 1 ! clock $end
$var wire 1 " reset $end
$scope module sub $end
$var wire 1 % probe_shared $end
$upscope $end
$var wire 1 % probe_top_alias $end
$upscope $end
$enddefinitions $end
#0
0!
1"
`
	r, err := Open(writeVCD(t, doc), []string{"TOP"})
	require.NoError(t, err)
	defer r.Close()

	paths := r.probes[IDCode("%")]
	assert.ElementsMatch(t, []string{"sub.probe_shared", "probe_top_alias"}, paths)
}
