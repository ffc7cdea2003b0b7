// internal/cache/lru.go
//
// Small least-recently-used cache.
//
// Context
// -------
// The date resolver keeps parsed *time.Location values here (client
// timezones repeat heavily), and the view package keeps parsed template
// sets.  Both are read on every request, so the cache is guarded by a
// single mutex; entries are cheap and a few hundred is plenty.
//
// Notes
// -----
// • Generic over key and value.  Zero value is unusable; call New.
// • Oxford commas, two spaces after periods.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a fixed-capacity, concurrency-safe cache.
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ll   *list.List
	dict map[K]*list.Element
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[K]*list.Element, capacity),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	var zero V
	return zero, false
}

// Add inserts or updates a value, evicting the oldest entry when full.
func (c *LRU[K, V]) Add(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	ele := c.ll.PushFront(pair[K, V]{key, val})
	c.dict[key] = ele
	if c.ll.Len() > c.cap {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.dict, last.Value.(pair[K, V]).key)
	}
}

// GetOrAdd returns the cached value for key, or calls load and caches its
// result.  Errors from load are returned as-is and nothing is cached.
func (c *LRU[K, V]) GetOrAdd(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Add(key, v)
	return v, nil
}

// Len reports current size.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
