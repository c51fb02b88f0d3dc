// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[int](3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, ok := c.Get(key)
		if !ok || got != want {
			t.Errorf("Get(%q) = %d, %v; want %d, true", key, got, ok, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}

	c.Add("a", 10)
	if got, _ := c.Get("a"); got != 10 {
		t.Errorf("Get(a) after update = %d, want 10", got)
	}

	if !c.Remove("b") {
		t.Error("Remove(b) = false, want true")
	}
	if c.Remove("b") {
		t.Error("second Remove(b) = true, want false")
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string](3, time.Minute)

	c.Add("a", "A")
	c.Add("b", "B")
	c.Add("c", "C")

	// 'a' becomes most recently used, so 'b' is evicted next.
	c.Get("a")
	c.Add("d", "D")

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %q to be present", key)
		}
	}
}

func TestLRU_TTL(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Add("a", 1)
	c.Add("b", 2)

	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected 'a' to have expired")
	}
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Add("a", 1)
	c.Get("a")
	c.Get("missing")

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d; want 1, 1, 1", hits, misses, size)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := strconv.Itoa((g*500 + i) % 150)
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
