// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.toSlogLevel(); got != tt.want {
			t.Errorf("toSlogLevel() = %v, want %v", got, tt.want)
		}
	}
}

// =============================================================================
// New / Config Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{Quiet: true})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

func TestNew_AllLevels(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		logger := New(Config{Level: level, Quiet: true})
		if logger == nil {
			t.Fatalf("New() returned nil for level %v", level)
		}
	}
}

func TestNew_WithService(t *testing.T) {
	logger := New(Config{Service: "dyn-pdg", Quiet: true})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNew_WithJSON(t *testing.T) {
	logger := New(Config{JSON: true, Quiet: true})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	// Should not panic when writing.
	logger.Info("json mode")
}

func TestNew_QuietMode(t *testing.T) {
	logger := New(Config{Quiet: true})
	// Should not panic even with no stderr handler configured.
	logger.Info("quiet message")
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		LogDir:  dir,
		Service: "dyn-pdg",
		Quiet:   true,
	})
	defer logger.Close()

	logger.Info("hello", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	if !contains(entries[0].Name(), "dyn-pdg_") {
		t.Errorf("log filename %q does not contain service prefix", entries[0].Name())
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	defer logger.Close()

	logger.Info("hello")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	if !contains(entries[0].Name(), "chiseltrace_") {
		t.Errorf("log filename %q does not contain default prefix", entries[0].Name())
	}
}

func TestNew_WithLogDir_InvalidPath(t *testing.T) {
	// A log dir nested under a regular file cannot be created; New must
	// drop the file sink rather than panicking.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Quiet: true})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	logger.Info("still works")
}

func TestNew_MultipleHandlers(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: false})
	defer logger.Close()

	logger.Info("fans out to stderr and file")
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
}

// =============================================================================
// Logger method tests
// =============================================================================

func TestLogger_LevelMethods(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir()})
	defer logger.Close()

	// None of these should panic regardless of configured level.
	logger.Debug("debug", "n", 1)
	logger.Info("info", "n", 2)
	logger.Warn("warn", "n", 3)
	logger.Error("error", "n", 4)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	handler := slog.NewTextHandler(&buf, opts)
	logger := &Logger{slog: slog.New(handler)}

	logger.Debug("should be filtered")
	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	if contains(out, "should be filtered") {
		t.Errorf("expected debug/info to be filtered, got: %s", out)
	}
	if !contains(out, "should appear") {
		t.Errorf("expected warn to appear, got: %s", out)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := &Logger{slog: slog.New(slog.NewTextHandler(&buf, nil))}

	scoped := base.With("run_id", "abc123")
	if scoped == nil {
		t.Fatal("With() returned nil")
	}
	scoped.Info("scoped message")

	if !contains(buf.String(), "run_id=abc123") {
		t.Errorf("expected attached attribute in output, got: %s", buf.String())
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

func TestLogger_Close_NoResources(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestLogger_Close_WithFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir()})
	defer logger.Close()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			logger.Info("concurrent", "worker", n)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

// =============================================================================
// multiHandler tests
// =============================================================================

func TestMultiHandler_FanOut(t *testing.T) {
	var bufA, bufB bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bufA, nil),
		slog.NewJSONHandler(&bufB, nil),
	}}
	logger := slog.New(h)
	logger.Info("fan out")

	if !contains(bufA.String(), "fan out") {
		t.Errorf("handler A missing message: %s", bufA.String())
	}
	if !contains(bufB.String(), "fan out") {
		t.Errorf("handler B missing message: %s", bufB.String())
	}
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected Enabled(Debug) to be false for an error-level handler")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("expected Enabled(Error) to be true")
	}
}

func TestMultiHandler_Enabled_NoHandlers(t *testing.T) {
	h := &multiHandler{}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected Enabled() to be false with no handlers")
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	h2 := h.WithAttrs([]slog.Attr{slog.String("service", "dyn-pdg")})
	slog.New(h2).Info("tagged")

	if !contains(buf.String(), "service=dyn-pdg") {
		t.Errorf("expected attribute in output, got: %s", buf.String())
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	h2 := h.WithGroup("cycle")
	slog.New(h2).Info("grouped", "n", 1)

	if !contains(buf.String(), "cycle.n=1") {
		t.Errorf("expected grouped attribute in output, got: %s", buf.String())
	}
}

// =============================================================================
// expandPath tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
