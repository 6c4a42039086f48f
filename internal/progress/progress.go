// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package progress reports DPDG build progress to the user: a
// rate-limited human-readable log line by default, or a small bubbletea
// counter when --tui is requested on a terminal. It never reports more
// often than the configured rate regardless of how fast the cycle loop
// calls Report, the same "don't spam the terminal with every tick"
// problem the teacher solves with a ticker-driven spinner frame cadence.
package progress

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Stats is a snapshot of build progress at the moment Report was called.
type Stats struct {
	Cycle         uint64
	NodesTotal    int
	EdgesTotal    int
	DelayedQueued int
}

// Reporter throttles progress updates to at most one per period,
// regardless of call frequency.
type Reporter struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	sink    func(Stats)
}

// New returns a Reporter that logs at most once per period via logger.
// A nil sink falls back to an slog line at Info level.
func New(logger *slog.Logger, period time.Duration, sink func(Stats)) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if period <= 0 {
		period = 500 * time.Millisecond
	}
	return &Reporter{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(period), 1),
		sink:    sink,
	}
}

// Report delivers s to the sink if the rate limiter currently allows it;
// otherwise it is silently dropped. The final call of a run should bypass
// this via ReportFinal so the summary line is never dropped.
func (r *Reporter) Report(s Stats) {
	if !r.limiter.Allow() {
		return
	}
	r.emit(s)
}

// ReportFinal always emits s, ignoring the rate limit — used once at EOF
// so the last line always reflects the true final counts.
func (r *Reporter) ReportFinal(s Stats) {
	r.emit(s)
}

func (r *Reporter) emit(s Stats) {
	if r.sink != nil {
		r.sink(s)
		return
	}
	r.logger.Info("build progress",
		slog.Uint64("cycle", s.Cycle),
		slog.Int("nodes", s.NodesTotal),
		slog.Int("edges", s.EdgesTotal),
		slog.Int("delayed_queued", s.DelayedQueued),
	)
}

// Line renders s as a single human-readable progress line, the format
// the status server's /status response carries; the Reporter's default
// sink logs structured fields instead.
func Line(s Stats) string {
	return fmt.Sprintf("cycle %d | nodes %d | edges %d | delayed %d",
		s.Cycle, s.NodesTotal, s.EdgesTotal, s.DelayedQueued)
}
