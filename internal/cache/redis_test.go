// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("BKC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: BKC_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisCache(t *testing.T, prefix string) *RedisCache {
	t.Helper()
	c, err := NewRedisCache(context.Background(), skipIfNoRedis(t), prefix, time.Minute)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	_ = c.Clear(context.Background())
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCache_Basic(t *testing.T) {
	c := newTestRedisCache(t, "bkconstruct-test:")
	ctx := context.Background()

	if err := c.Set(ctx, "home", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "home")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get = %q", got)
	}
	if n := c.Stats().Items; n != 1 {
		t.Errorf("Items = %d, want 1", n)
	}

	if err := c.Delete(ctx, "home"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "home"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if n := c.Stats().Items; n != 0 {
		t.Errorf("Items after Delete = %d", n)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c := newTestRedisCache(t, "bkconstruct-test:")
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), 100*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	if _, err := c.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("expected expired page to miss, got %v", err)
	}
	if n := c.Stats().Items; n != 0 {
		t.Errorf("expired page counted: %d", n)
	}
}

func TestRedisCache_ClearKeepsOtherPrefixes(t *testing.T) {
	c := newTestRedisCache(t, "bkconstruct-test:")
	other := newTestRedisCache(t, "bkconstruct-other:")
	ctx := context.Background()

	_ = c.Set(ctx, "home", []byte("1"), 0)
	_ = c.Set(ctx, "projects", []byte("1"), 0)
	_ = other.Set(ctx, "home", []byte("2"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, k := range []string{"home", "projects"} {
		if _, err := c.Get(ctx, k); err != ErrCacheMiss {
			t.Errorf("cleared page %s still present: %v", k, err)
		}
	}
	if _, err := other.Get(ctx, "home"); err != nil {
		t.Errorf("page under another prefix removed: %v", err)
	}
	if s := c.Stats(); s.Items != 0 || s.Sets != 2 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestRedisCache_Close(t *testing.T) {
	c := newTestRedisCache(t, "bkconstruct-test:")
	ctx := context.Background()
	_ = c.Close()
	if _, err := c.Get(ctx, "home"); err != ErrCacheClosed {
		t.Errorf("Get after Close = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRedisCache(ctx, "", "", 0); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewRedisCache(ctx, "not-a-redis-url", "", 0); err == nil {
		t.Error("expected error for invalid URL")
	}
}
