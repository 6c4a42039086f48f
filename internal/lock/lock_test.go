// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_LocksAndWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	f, err := Acquire(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString(`{"vertices":[]}`)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNew_ReturnsPlatformLocker(t *testing.T) {
	l := New()
	assert.NotNil(t, l)
}

func TestIsProcessAlive_CurrentProcess(t *testing.T) {
	assert.True(t, IsProcessAlive(os.Getpid()))
}

func TestIsProcessAlive_UnlikelyPID(t *testing.T) {
	// PID 1 << 30 should never correspond to a live process on any
	// supported platform; this is a best-effort sanity check, not a
	// guarantee (PID namespaces can in principle reuse large values).
	assert.False(t, IsProcessAlive(1<<30))
}

func TestUnlock_SafeWithoutPriorLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	l := New()
	assert.NoError(t, l.Unlock(f))
}
