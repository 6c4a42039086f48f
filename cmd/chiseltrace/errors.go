// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"

	"github.com/chiseltrace/chiseltrace-go/internal/chiserr"
)

// Exit codes, distinct per failure class so a caller scripting chiseltrace
// can tell a bad criterion apart from a malformed input file.
const (
	exitOK = iota
	exitGenericFailure
	exitBadCriterion
	exitVariableNotFound
	exitMalformedInput
)

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, chiserr.ErrBadCriterion):
		return exitBadCriterion
	case errors.Is(err, chiserr.ErrClockNotFound), errors.Is(err, chiserr.ErrVariableNotFound):
		return exitVariableNotFound
	case errors.Is(err, chiserr.ErrMalformedPDG), errors.Is(err, chiserr.ErrMalformedVCD):
		return exitMalformedInput
	default:
		return exitGenericFailure
	}
}
