// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

//go:build unix

package lock

import (
	"os"
	"syscall"
)

type unixFileLocker struct{}

func newPlatformLocker() FileLocker { return &unixFileLocker{} }

// Lock uses flock(2) with LOCK_EX|LOCK_NB: the same advisory, non-blocking
// exclusive lock the output-file writer needs, nothing more.
func (l *unixFileLocker) Lock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return nil
	}
	if err == syscall.EWOULDBLOCK {
		return ErrFileLocked
	}
	return err
}

func (l *unixFileLocker) Unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
