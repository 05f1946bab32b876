// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package cache provides an in-memory TTL cache for query API results.
//
// The API serves a database opened read-only, so a result only goes stale
// when an operator re-runs extract or transform against the file; a short
// TTL bounds that staleness.
//
//	c := cache.New[any](30 * time.Second)
//	defer c.Close()
//	key := cache.GenerateKey("latest", filter)
//	if v, ok := c.Get(key); ok { ... }
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Keys        int
	LastCleanup time.Time
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Cache is safe for concurrent use. A janitor goroutine removes expired
// entries until Close is called.
type Cache[V any] struct {
	mu          sync.RWMutex
	entries     map[string]entry[V]
	ttl         time.Duration
	lastCleanup time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache whose entries live for ttl. The janitor runs every
// ttl, but at most once a second.
func New[V any](ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries:     make(map[string]entry[V]),
		ttl:         ttl,
		lastCleanup: time.Now(),
		stop:        make(chan struct{}),
	}
	interval := ttl
	if interval < time.Second {
		interval = time.Second
	}
	go c.janitor(interval)
	return c
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Another goroutine may have refreshed the key meanwhile.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evictions.Add(1)
	}
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
	c.evictions.Add(int64(n))
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	keys, last := len(c.entries), c.lastCleanup
	c.mu.RUnlock()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Keys:        keys,
		LastCleanup: last,
	}
}

// Close stops the janitor. The cache stays usable.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache[V]) cleanup() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
	}
	c.lastCleanup = now
}

// GenerateKey hashes the JSON form of params under a name prefix, so equal
// filters share an entry.
func GenerateKey(name string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", name, params)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", name, sum[:16])
}
