// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/chiseltrace/chiseltrace-go/internal/pdgspec"
)

// resolveCriterionArg loads pdgPath only when raw is the "-" picker
// sentinel; every other criterion string passes through untouched and
// never pays for a PDG decode it doesn't need.
func resolveCriterionArg(pdgPath, raw string) (string, error) {
	if raw != "-" {
		return raw, nil
	}

	f, err := os.Open(pdgPath)
	if err != nil {
		return "", fmt.Errorf("picker: opening %s: %w", pdgPath, err)
	}
	defer f.Close()

	pdg, err := pdgspec.Decode(f)
	if err != nil {
		return "", fmt.Errorf("picker: decoding %s: %w", pdgPath, err)
	}

	return resolveCriterion(raw, pdg)
}

// resolveCriterion returns raw unchanged unless it is the "-" sentinel, in
// which case it opens an interactive huh.Select over every distinct
// assigns_to symbol in pdg, letting a terminal user pick a "signal:NAME"
// criterion instead of knowing a statement name or line number up front.
func resolveCriterion(raw string, pdg *pdgspec.PDG) (string, error) {
	if raw != "-" {
		return raw, nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, v := range pdg.Vertices {
		if v.AssignsTo == nil || seen[*v.AssignsTo] {
			continue
		}
		seen[*v.AssignsTo] = true
		names = append(names, *v.AssignsTo)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("picker: pdg has no assigns_to symbols to choose from")
	}

	opts := make([]huh.Option[string], len(names))
	for i, n := range names {
		opts[i] = huh.NewOption(n, n)
	}

	var selected string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Select a slicing criterion signal").
			Options(opts...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	return "signal:" + selected, nil
}
