// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the application's slog handler. Records are written
// as text and counted per level; warnings and errors raised while serving a
// request carry the request id and path.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Counter is the subset of a Prometheus counter vector used by the handler.
type Counter interface {
	Inc(level string)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(level string)

// Inc implements Counter.
func (f CounterFunc) Inc(level string) { f(level) }

type ctxKey struct{}

// WithPath returns a context carrying the request path for log enrichment.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ctxKey{}, path)
}

// Handler is a slog.Handler that wraps another handler, counts records and
// enriches WARN and above with request context.
type Handler struct {
	inner   slog.Handler
	counter Counter
	level   slog.Level // Minimum level to enrich (default: WARN)
}

// NewHandler wraps inner. counter may be nil.
func NewHandler(inner slog.Handler, counter Counter) *Handler {
	return &Handler{
		inner:   inner,
		counter: counter,
		level:   slog.LevelWarn,
	}
}

// New returns a text handler writing to w at the given level.
func New(w io.Writer, level slog.Level, counter Counter) *Handler {
	return NewHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), counter)
}

// ParseLevel maps a config value to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if h.counter != nil {
		h.counter.Inc(levelLabel(r.Level))
	}

	if r.Level >= h.level && ctx != nil {
		if id := chimw.GetReqID(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		if path, ok := ctx.Value(ctxKey{}).(string); ok && path != "" {
			r.AddAttrs(slog.String("path", path))
		}
	}

	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner:   h.inner.WithAttrs(attrs),
		counter: h.counter,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:   h.inner.WithGroup(name),
		counter: h.counter,
		level:   h.level,
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
