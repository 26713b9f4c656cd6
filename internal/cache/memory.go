// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache keeps pages in process. When full, the oldest stored page is
// evicted first.
type MemoryCache struct {
	counters

	mu      sync.Mutex
	ttl     time.Duration
	max     int
	pages   map[string]*list.Element
	order   *list.List // of *memoryPage, oldest first
	closed  bool
	nowFunc func() time.Time
}

type memoryPage struct {
	key     string
	body    []byte
	expires time.Time
}

// NewMemoryCache returns a cache holding at most maxPages pages
// (0 = unlimited) for ttl each (0 = DefaultTTL).
func NewMemoryCache(ttl time.Duration, maxPages int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		max:     maxPages,
		pages:   make(map[string]*list.Element),
		order:   list.New(),
		nowFunc: time.Now,
	}
}

// Get returns a copy of the page under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	el, ok := c.pages[key]
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	p := el.Value.(*memoryPage)
	if !c.nowFunc().Before(p.expires) {
		c.remove(el)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)
	return append([]byte(nil), p.body...), nil
}

// Set stores a copy of body under key.
func (c *MemoryCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	p := &memoryPage{key: key, body: append([]byte(nil), body...), expires: c.nowFunc().Add(ttl)}
	if el, ok := c.pages[key]; ok {
		el.Value = p
		c.order.MoveToBack(el)
	} else {
		c.pages[key] = c.order.PushBack(p)
	}
	c.sets.Add(1)

	for c.max > 0 && c.order.Len() > c.max {
		c.remove(c.order.Front())
	}
	return nil
}

// Delete drops the page under key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if el, ok := c.pages[key]; ok {
		c.remove(el)
	}
	return nil
}

// Clear drops every page.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	clear(c.pages)
	c.order.Init()
	return nil
}

// Stats reports the counters and the number of unexpired pages.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	live := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if now.Before(el.Value.(*memoryPage).expires) {
			live++
		}
	}
	return c.stats(live)
}

// Close releases the pages. Later calls fail with ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pages = nil
	c.order.Init()
	return nil
}

func (c *MemoryCache) remove(el *list.Element) {
	delete(c.pages, el.Value.(*memoryPage).key)
	c.order.Remove(el)
}

var _ Cache = (*MemoryCache)(nil)
