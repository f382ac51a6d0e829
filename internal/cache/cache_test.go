package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Run("entry lifecycle", func(t *testing.T) {
		c := NewMemory[string, []byte]()

		_, ok := c.Get("oesm23st/state_M2023_dl.xlsx")
		assert.False(t, ok)

		c.Put("oesm23st/state_M2023_dl.xlsx", []byte("PK"))
		got, ok := c.Get("oesm23st/state_M2023_dl.xlsx")
		require.True(t, ok)
		assert.Equal(t, []byte("PK"), got)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("put replaces", func(t *testing.T) {
		c := NewMemory[string, int]()
		c.Put("a", 1)
		c.Put("a", 2)

		got, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, got)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("stats", func(t *testing.T) {
		c := NewMemory[string, int]()
		assert.Equal(t, Stats{}, c.Stats())

		c.Put("a", 1)
		c.Get("a")
		c.Get("a")
		c.Get("b")
		c.Get("c")

		stats := c.Stats()
		assert.Equal(t, 1, stats.Entries)
		assert.Equal(t, int64(2), stats.Hits)
		assert.Equal(t, int64(2), stats.Misses)
		assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)
	})

	t.Run("concurrent access", func(t *testing.T) {
		c := NewMemory[string, int]()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("k%d", i%10)
				c.Put(key, i)
				c.Get(key)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, c.Len())
		assert.Equal(t, int64(50), c.Stats().Hits)
	})
}

type recordedLookup struct {
	cache string
	hit   bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	lookups []recordedLookup
}

func (r *fakeRecorder) RecordCache(_ context.Context, cache string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, recordedLookup{cache: cache, hit: hit})
}

func TestObserve(t *testing.T) {
	recorder := &fakeRecorder{}
	c := Observe[string, int](NewMemory[string, int](), "listings", recorder)

	c.Get("missing")
	c.Put("present", 7)
	got, ok := c.Get("present")

	require.True(t, ok)
	assert.Equal(t, 7, got)
	assert.Equal(t, []recordedLookup{
		{cache: "listings", hit: false},
		{cache: "listings", hit: true},
	}, recorder.lookups)
}

func TestObserve_NilRecorder(t *testing.T) {
	c := Observe[string, int](NewMemory[string, int](), "raw", nil)
	c.Put("a", 1)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}
