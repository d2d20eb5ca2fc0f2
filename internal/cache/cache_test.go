// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Fatal("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists := c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 key", stats)
	}
	if rate := c.HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
}

func TestCacheExpiration(t *testing.T) {
	t.Parallel()

	c := New(50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	if _, exists := c.Get("key1"); !exists {
		t.Fatal("Expected key1 to exist immediately after set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired")
	}
	if stats := c.GetStats(); stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	t.Parallel()

	c := New(time.Hour)
	defer c.Close()

	c.SetWithTTL("short", 1, 10*time.Millisecond)
	c.Set("long", 2)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default-TTL entry should still exist")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}

	c.Clear()
	for _, key := range []string{"b", "c"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("%s should be cleared", key)
		}
	}

	stats := c.GetStats()
	if stats.Evictions != 3 || stats.TotalKeys != 0 {
		t.Errorf("stats = %+v, want 3 evictions and 0 keys", stats)
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Close()

	c.SetWithTTL("stale", 1, -time.Second)
	c.Set("fresh", 2)
	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 || stats.Evictions != 1 {
		t.Errorf("stats after cleanup = %+v, want 1 key and 1 eviction", stats)
	}
}

func TestCacheCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	c.Close()
	c.Close()

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Error("cache should stay usable after Close")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%10)
				c.Set(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	for j := 0; j < 10; j++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", j)); !ok {
			t.Errorf("key-%d missing after concurrent writes", j)
		}
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	a := GenerateKey("popular", 10)
	b := GenerateKey("popular", 10)
	other := GenerateKey("popular", 11)

	if a != b {
		t.Errorf("same params gave different keys: %s vs %s", a, b)
	}
	if a == other {
		t.Error("different params gave the same key")
	}
}
