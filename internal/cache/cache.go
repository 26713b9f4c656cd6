// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache holds encoded public page payloads in memory or Redis.
// Entries are keyed by page and dropped as a whole whenever content changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// DefaultTTL applies when a backend is built without a TTL.
	DefaultTTL = time.Hour
	// DefaultPrefix namespaces page keys in Redis.
	DefaultPrefix = "bkconstruct:pages:"
)

// Cache stores page payloads under page keys. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss when the page is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a page; a zero ttl means the backend's TTL.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every page of this cache.
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the page is not cached or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

// Stats are hit and miss counters of a cache.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// counters is embedded by both backends.
type counters struct {
	hits, misses, sets atomic.Int64
}

func (c *counters) stats(items int) Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Sets: c.sets.Load(), Items: items}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// Config selects and configures the backend.
type Config struct {
	// RedisURL selects Redis when set, e.g. redis://localhost:6379/0.
	RedisURL string
	Prefix   string
	TTL      time.Duration
	// MaxSize bounds the memory backend (0 = unlimited).
	MaxSize int
}

// New returns a Redis cache when cfg.RedisURL is set and reachable, and a
// memory cache otherwise.
func New(cfg Config, logger *slog.Logger) Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL)
		if err == nil {
			logger.Info("page cache initialized", "backend", "redis")
			return rc
		}
		logger.Warn("redis unavailable, using memory page cache", "error", err)
	}
	logger.Info("page cache initialized", "backend", "memory")
	return NewMemoryCache(cfg.TTL, cfg.MaxSize)
}

// ClearOnChange returns a content change hook that drops every cached page.
func ClearOnChange(c Cache, logger *slog.Logger) func(kind string) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(kind string) {
		if err := c.Clear(context.Background()); err != nil {
			logger.Warn("failed to clear page cache", "kind", kind, "error", err)
			return
		}
		logger.Debug("page cache cleared", "kind", kind)
	}
}

// GetJSON decodes the page under key into dst. It reports false on a miss
// or an undecodable entry, which is dropped.
func GetJSON(ctx context.Context, c Cache, key string, dst any) bool {
	data, err := c.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			slog.Warn("page cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		_ = c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v encoded as JSON. Failures are logged and otherwise ignored.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("page cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		slog.Warn("page cache write failed", "key", key, "error", err)
	}
}
