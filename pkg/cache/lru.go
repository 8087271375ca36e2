// Package cache provides the hot-tier LRU chunk cache. The cache is purely
// an accelerator in front of the cold store and is never the sole copy of a
// chunk.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCapacity bounds the cache to a small working set of chunks.
const DefaultCapacity = 1000

// LRU maps chunk hash to chunk bytes with least-recently-used eviction.
// Capacity counts entries, not bytes; chunks have a fixed maximum size so the
// memory bound follows. All methods are safe for concurrent use.
type LRU struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   string
	value []byte
}

// NewLRU creates a cache holding at most capacity entries. A capacity below 1
// falls back to DefaultCapacity.
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Get returns the cached bytes for key and marks the entry as recently used.
func (c *LRU) Get(key []byte) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[string(key)]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Put inserts or refreshes an entry, evicting the least-recently-used entry
// when the cache is at capacity.
func (c *LRU) Put(key []byte, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[string(key)]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry).value = value
		return
	}

	for c.evictList.Len() >= c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	ent := &entry{key: string(key), value: value}
	c.items[ent.key] = c.evictList.PushFront(ent)
}

// Len returns the current number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Contains reports whether key is cached without touching recency.
func (c *LRU) Contains(key []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[string(key)]
	return ok
}

// Stats returns the hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*entry).key)
}
