// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chiserr defines the shared error taxonomy used across the DPDG
// builder: BadCriterion, ClockNotFound/VariableNotFound, MalformedPDG,
// MalformedVCD. Budget exhaustion is not modeled as an error — it is an
// early, successful termination of the cycle loop.
package chiserr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) at the call site
// to attach detail; callers should match with errors.Is.
var (
	// ErrBadCriterion means the criterion string was ill-formed, or no
	// dynamic node ever matched it by the end of the stream.
	ErrBadCriterion = errors.New("bad criterion")

	// ErrClockNotFound means the VCD has no "clock" or no "reset" variable
	// under the configured scope root. Fatal at startup.
	ErrClockNotFound = errors.New("clock signal not found")

	// ErrVariableNotFound means a VCD variable looked up by path (e.g. a
	// predicate probe) could not be resolved under the scope root.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrMalformedPDG means the static PDG JSON failed to parse or
	// violated a structural expectation (e.g. a dangling edge endpoint).
	ErrMalformedPDG = errors.New("malformed PDG")

	// ErrMalformedVCD means the VCD token stream was not well-formed.
	ErrMalformedVCD = errors.New("malformed VCD")
)

// CriterionError reports a criterion-string parse failure or a stream-end
// criterion miss, with the offending/looked-for text attached.
type CriterionError struct {
	Criterion string
	Err       error
}

func (e *CriterionError) Error() string {
	return fmt.Sprintf("criterion %q: %v", e.Criterion, e.Err)
}

func (e *CriterionError) Unwrap() error { return e.Err }

// NewCriterionError wraps ErrBadCriterion (or a more specific cause) with
// the criterion text that triggered it.
func NewCriterionError(criterion string, cause error) *CriterionError {
	if cause == nil {
		cause = ErrBadCriterion
	}
	return &CriterionError{Criterion: criterion, Err: cause}
}

// VariableError reports which scoped variable lookup failed and why.
type VariableError struct {
	Path string
	Err  error
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("variable %q: %v", e.Path, e.Err)
}

func (e *VariableError) Unwrap() error { return e.Err }

// NewVariableError wraps ErrVariableNotFound (or ErrClockNotFound) with the
// dotted scope path that was being resolved.
func NewVariableError(path string, cause error) *VariableError {
	if cause == nil {
		cause = ErrVariableNotFound
	}
	return &VariableError{Path: path, Err: cause}
}

// PDGError reports a location (byte offset or structural description)
// alongside the parse/structural failure.
type PDGError struct {
	Detail string
	Err    error
}

func (e *PDGError) Error() string {
	return fmt.Sprintf("pdg: %s: %v", e.Detail, e.Err)
}

func (e *PDGError) Unwrap() error { return e.Err }

// NewPDGError wraps ErrMalformedPDG with a human-readable detail string.
func NewPDGError(detail string, cause error) *PDGError {
	if cause == nil {
		cause = ErrMalformedPDG
	}
	return &PDGError{Detail: detail, Err: cause}
}

// VCDError reports the line/byte context of a VCD tokenizer failure.
type VCDError struct {
	Detail string
	Err    error
}

func (e *VCDError) Error() string {
	return fmt.Sprintf("vcd: %s: %v", e.Detail, e.Err)
}

func (e *VCDError) Unwrap() error { return e.Err }

// NewVCDError wraps ErrMalformedVCD with a human-readable detail string.
func NewVCDError(detail string, cause error) *VCDError {
	if cause == nil {
		cause = ErrMalformedVCD
	}
	return &VCDError{Detail: detail, Err: cause}
}
