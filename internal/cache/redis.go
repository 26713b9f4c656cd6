// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// indexSuffix names the set listing every page key stored under a prefix.
const indexSuffix = "@pages"

// RedisCache shares pages between server instances. Each page is a string
// key under the prefix; a set next to them indexes the stored keys so Clear
// drops exactly this cache's pages.
type RedisCache struct {
	counters

	client *redis.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// NewRedisCache connects to url and checks the connection. An empty prefix
// means DefaultPrefix and a zero ttl DefaultTTL.
func NewRedisCache(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisCache, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (c *RedisCache) key(page string) string { return c.prefix + page }

func (c *RedisCache) index() string { return c.prefix + indexSuffix }

// Get returns the page under key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	body, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	c.hits.Add(1)
	return body, nil
}

// Set stores the page and records its key in the index.
func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, c.key(key), body, ttl)
		p.SAdd(ctx, c.index(), key)
		return nil
	})
	if err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Delete drops the page under key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.key(key))
		p.SRem(ctx, c.index(), key)
		return nil
	})
	return err
}

// Clear drops every indexed page and the index itself.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	pages, err := c.client.SMembers(ctx, c.index()).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(pages)+1)
	for _, p := range pages {
		keys = append(keys, c.key(p))
	}
	keys = append(keys, c.index())
	return c.client.Del(ctx, keys...).Err()
}

// Stats reports the counters and the number of indexed pages still stored.
func (c *RedisCache) Stats() Stats {
	if c.closed.Load() {
		return c.stats(0)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var live int
	if pages, err := c.client.SMembers(ctx, c.index()).Result(); err == nil && len(pages) > 0 {
		keys := make([]string, len(pages))
		for i, p := range pages {
			keys[i] = c.key(p)
		}
		if n, err := c.client.Exists(ctx, keys...).Result(); err == nil {
			live = int(n)
		}
	}
	return c.stats(live)
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
