// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lock provides advisory locking of the exported DPDG output file,
// so two dyn-pdg/dyn-slice runs never interleave their writes to the same
// path. It is a single-writer primitive, not a change-watching service:
// unlike a source file an agent edits interactively, the output file here
// is written once per run and never watched afterward.
package lock

import (
	"errors"
	"os"
)

// ErrFileLocked is returned by Lock when another process already holds the
// lock on the file.
var ErrFileLocked = errors.New("lock: file already locked by another process")

// FileLocker abstracts platform-specific file locking.
//
// Implementations must be safe for concurrent use on different files;
// locking the same file from multiple goroutines in this process is
// undefined behavior, same as flock(2) itself.
type FileLocker interface {
	// Lock acquires a non-blocking exclusive lock on f, returning
	// ErrFileLocked immediately if it is already held elsewhere.
	Lock(f *os.File) error
	// Unlock releases a previously acquired lock. Safe to call even if
	// f was never locked.
	Unlock(f *os.File) error
}

// IsProcessAlive reports whether a process with the given PID still exists.
// Used to decide whether a leftover lock is stale (holder crashed) or live.
func IsProcessAlive(pid int) bool {
	return isProcessAlive(pid)
}

// New returns the platform-appropriate FileLocker.
func New() FileLocker {
	return newPlatformLocker()
}

// Acquire opens path for writing, takes an exclusive lock on it, and
// returns the open, locked file. The caller must Close it (which also
// drops the OS-level lock) when the run finishes.
func Acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	locker := New()
	if err := locker.Lock(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
