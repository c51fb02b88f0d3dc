// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package cache provides the bounded TTL cache used in front of the content
// catalog. Catalog responses are stable for hours, while a single run issues
// the same search and related-title requests for overlapping history.
package cache

import (
	"sync"
	"time"
)

type lruEntry[V any] struct {
	key       string
	value     V
	prev      *lruEntry[V]
	next      *lruEntry[V]
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used cache with per-entry TTL.
//
// Key features:
//   - O(1) Get, Add, Remove operations
//   - O(1) eviction when capacity is reached
//   - lazy expiration on read, plus CleanupExpired for periodic sweeps
//
// The implementation is a hashmap over a doubly-linked list with sentinel
// head and tail nodes.
type LRU[V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*lruEntry[V]

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]

	hits   int64
	misses int64
}

// NewLRU creates a cache holding at most capacity entries for ttl each.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruEntry[V], capacity),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key if present and unexpired, marking it most
// recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return zero, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Add inserts or replaces key, resetting its TTL. The least recently used
// entry is evicted when the cache is full.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Remove deletes key and reports whether it was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry[V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes all expired entries and returns how many it removed.
func (c *LRU[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit and miss counts and the current size.
func (c *LRU[V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU[V]) removeEntry(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRU[V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
