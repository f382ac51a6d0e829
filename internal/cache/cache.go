// Package cache provides the process-lifetime key/value store shared by the
// directory indexer and the spreadsheet loader. Entries never expire.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// Cache is the explicit get/put service injected into components that memoize
// remote results. Implementations must be safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
}

// Memory is an in-memory Cache guarded by a RWMutex
type Memory[K comparable, V any] struct {
	entries   map[K]V
	mutex     sync.RWMutex
	hitCount  atomic.Int64
	missCount atomic.Int64
}

// NewMemory creates an empty in-memory cache
func NewMemory[K comparable, V any]() *Memory[K, V] {
	return &Memory[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a value from the cache
func (c *Memory[K, V]) Get(key K) (V, bool) {
	c.mutex.RLock()
	value, ok := c.entries[key]
	c.mutex.RUnlock()

	if ok {
		c.hitCount.Add(1)
	} else {
		c.missCount.Add(1)
	}

	return value, ok
}

// Put stores a value. An existing entry for key is replaced.
func (c *Memory[K, V]) Put(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = value
}

// Len returns the number of entries
func (c *Memory[K, V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries  int     `json:"entries"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Stats returns cache statistics
func (c *Memory[K, V]) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := Stats{
		Entries: len(c.entries),
		Hits:    c.hitCount.Load(),
		Misses:  c.missCount.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Recorder receives one event per lookup
type Recorder interface {
	RecordCache(ctx context.Context, cache string, hit bool)
}

// Observed decorates a Cache and reports every lookup to a Recorder
type Observed[K comparable, V any] struct {
	Cache[K, V]
	name     string
	recorder Recorder
}

// Observe wraps c so lookups are reported under name
func Observe[K comparable, V any](c Cache[K, V], name string, recorder Recorder) *Observed[K, V] {
	return &Observed[K, V]{Cache: c, name: name, recorder: recorder}
}

// Get retrieves a value and records the outcome
func (o *Observed[K, V]) Get(key K) (V, bool) {
	value, ok := o.Cache.Get(key)
	if o.recorder != nil {
		o.recorder.RecordCache(context.Background(), o.name, ok)
	}
	return value, ok
}
