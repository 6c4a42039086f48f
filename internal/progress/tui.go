// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package progress

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatsMsg carries a Stats snapshot into the bubbletea event loop.
type StatsMsg Stats

// DoneMsg signals the build finished; Err is non-nil on failure.
type DoneMsg struct {
	Final Stats
	Err   error
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Model is the bubbletea model backing --tui: a single-screen live
// counter of cycles/nodes/edges/delayed-queue depth, replacing the
// rate-limited log line when stdout is a terminal.
type Model struct {
	latest Stats
	done   bool
	err    error
}

// NewModel returns an empty Model ready for tea.NewProgram.
func NewModel() Model {
	return Model{}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatsMsg:
		m.latest = Stats(msg)
		return m, nil
	case DoneMsg:
		m.latest = msg.Final
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	status := "building"
	if m.done {
		status = "done"
	}
	body := fmt.Sprintf(
		"%s %s\n%s %d   %s %d   %s %d   %s %d\n",
		labelStyle.Render("chiseltrace"), valueStyle.Render(status),
		labelStyle.Render("cycle"), m.latest.Cycle,
		labelStyle.Render("nodes"), m.latest.NodesTotal,
		labelStyle.Render("edges"), m.latest.EdgesTotal,
		labelStyle.Render("delayed"), m.latest.DelayedQueued,
	)
	if m.err != nil {
		body += errStyle.Render("error: "+m.err.Error()) + "\n"
	}
	return body
}
