package cache_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianos/strata/pkg/cache"
)

func key(i int) []byte { return []byte(fmt.Sprintf("hash-%03d", i)) }

func TestLRU_PutGet(t *testing.T) {
	c := cache.NewLRU(10)

	c.Put(key(1), []byte("one"))
	got, ok := c.Get(key(1))
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), got)

	_, ok = c.Get(key(2))
	assert.False(t, ok)
}

func TestLRU_CapacityBound(t *testing.T) {
	c := cache.NewLRU(8)

	for i := 0; i < 100; i++ {
		c.Put(key(i), []byte{byte(i)})
		assert.LessOrEqual(t, c.Len(), 8)
	}
	assert.Equal(t, 8, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewLRU(2)

	c.Put(key(1), []byte("one"))
	c.Put(key(2), []byte("two"))
	c.Put(key(3), []byte("three"))

	assert.False(t, c.Contains(key(1)), "oldest entry must be evicted first")
	assert.True(t, c.Contains(key(2)))
	assert.True(t, c.Contains(key(3)))
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	c := cache.NewLRU(2)

	c.Put(key(1), []byte("one"))
	c.Put(key(2), []byte("two"))

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(key(1))
	assert.True(t, ok)

	c.Put(key(3), []byte("three"))

	assert.True(t, c.Contains(key(1)))
	assert.False(t, c.Contains(key(2)))
}

func TestLRU_UpdateExistingDoesNotGrow(t *testing.T) {
	c := cache.NewLRU(4)

	c.Put(key(1), []byte("one"))
	c.Put(key(1), []byte("uno"))

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get(key(1))
	assert.True(t, ok)
	assert.Equal(t, []byte("uno"), got)
}

func TestLRU_Stats(t *testing.T) {
	c := cache.NewLRU(4)
	c.Put(key(1), []byte("one"))

	c.Get(key(1))
	c.Get(key(2))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
