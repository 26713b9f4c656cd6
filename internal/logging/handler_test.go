// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type countingCounter map[string]int

func (c countingCounter) Inc(level string) { c[level]++ }

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandler_CountsByLevel(t *testing.T) {
	var buf bytes.Buffer
	counts := countingCounter{}
	logger := slog.New(New(&buf, slog.LevelDebug, counts))

	logger.Debug("d")
	logger.Info("i")
	logger.Info("i2")
	logger.Warn("w")
	logger.Error("e")

	want := map[string]int{"debug": 1, "info": 2, "warn": 1, "error": 1}
	for level, n := range want {
		if counts[level] != n {
			t.Errorf("count[%s] = %d, want %d", level, counts[level], n)
		}
	}
}

func TestHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	counts := countingCounter{}
	logger := slog.New(New(&buf, slog.LevelWarn, counts))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record should be filtered")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn record should be written")
	}
	if counts["info"] != 0 {
		t.Errorf("filtered records should not be counted, got %d", counts["info"])
	}
}

func TestHandler_EnrichesWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(New(&buf, slog.LevelDebug, nil))

	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-42")
	ctx = WithPath(ctx, "/admin/projects")

	logger.InfoContext(ctx, "plain")
	line := buf.String()
	if strings.Contains(line, "request_id") {
		t.Errorf("info record should not be enriched: %s", line)
	}

	buf.Reset()
	logger.ErrorContext(ctx, "failed to save project")
	line = buf.String()
	if !strings.Contains(line, "request_id=req-42") {
		t.Errorf("missing request_id: %s", line)
	}
	if !strings.Contains(line, "path=/admin/projects") {
		t.Errorf("missing path: %s", line)
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	counts := countingCounter{}
	logger := slog.New(New(&buf, slog.LevelInfo, counts)).With("component", "scheduler").WithGroup("job")

	logger.Info("ran", "name", "session-sweep")

	out := buf.String()
	if !strings.Contains(out, "component=scheduler") || !strings.Contains(out, "job.name=session-sweep") {
		t.Errorf("unexpected output: %s", out)
	}
	if counts["info"] != 1 {
		t.Errorf("derived handlers should share the counter, got %d", counts["info"])
	}
}
