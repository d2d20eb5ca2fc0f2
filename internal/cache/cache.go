// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// cleanupInterval bounds how long expired entries linger when nobody reads them.
const cleanupInterval = time.Minute

// Entry is a cached value with its expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a thread-safe in-memory TTL cache.
//
// Expired entries are dropped lazily on Get and by a background sweep that
// runs until Close.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a cache whose entries live for ttl and starts its sweeper.
//
//	c := cache.New(5 * time.Second)
//	defer c.Close()
//	c.Set(cache.GenerateKey("popular", limit), rows)
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.record(func(s *Stats) { s.Misses++ })
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, ok := c.entries[key]; ok && time.Now().After(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		return nil, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return entry.Data, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{Data: value, ExpiresAt: time.Now().Add(ttl)}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) { s.TotalKeys = n })
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) {
		if existed {
			s.Evictions++
		}
		s.TotalKeys = n
	})
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = 0
	})
}

// GetStats returns a snapshot of the counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups, 0 before any lookup.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0
	}
	return float64(stats.Hits) / float64(total) * 100
}

// Close stops the background sweep. The cache stays usable.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

func (c *Cache) cleanupLoop() {
	defer close(c.done)

	ticker := time.NewTicker(cleanupInterval)
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

func (c *Cache) cleanup() {
	now := time.Now()

	c.mu.Lock()
	var evicted int64
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = n
		s.LastCleanup = now
	})
}

func (c *Cache) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

// GenerateKey derives a compact key from a method name and its parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
