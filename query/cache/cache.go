// Package cache provides a bounded LRU cache used for prepared statements and
// compiled SQL templates.
package cache

import "sync"

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// EvictFunc is called with every entry that leaves the cache, whether it was
// pushed out by capacity, invalidated, or cleared.
type EvictFunc[K comparable, V any] func(key K, value V)

// LRU implements a least recently used cache with a fixed capacity.
// A capacity of zero stores nothing: Set hands the value straight to the
// eviction callback.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	data    map[K]*node[K, V]
	maxSize int
	head    *node[K, V]
	tail    *node[K, V]
	stats   Stats
	onEvict EvictFunc[K, V]
}

// node represents a node in the doubly-linked list for LRU
type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// New creates a new LRU cache
func New[K comparable, V any](maxSize int, onEvict EvictFunc[K, V]) *LRU[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &LRU[K, V]{
		data:    make(map[K]*node[K, V]),
		maxSize: maxSize,
		stats:   Stats{MaxSize: maxSize},
		onEvict: onEvict,
	}
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int {
	return c.maxSize
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Get retrieves a value from the cache and marks it most recently used
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.moveToFront(n)
	c.stats.Hits++
	return n.value, true
}

// Contains reports whether key is cached without touching recency or stats.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// Set stores a value in the cache. Replacing an existing key hands the old
// value to the eviction callback.
func (c *LRU[K, V]) Set(key K, value V) {
	var evicted []*node[K, V]

	c.mu.Lock()
	if c.maxSize == 0 {
		c.mu.Unlock()
		c.evict([]*node[K, V]{{key: key, value: value}})
		return
	}

	if n, exists := c.data[key]; exists {
		evicted = append(evicted, &node[K, V]{key: key, value: n.value})
		n.value = value
		c.moveToFront(n)
		c.mu.Unlock()
		c.evict(evicted)
		return
	}

	for len(c.data) >= c.maxSize && c.tail != nil {
		lru := c.tail
		c.removeNode(lru)
		c.stats.Evictions++
		evicted = append(evicted, lru)
	}

	n := &node[K, V]{key: key, value: value}
	c.addToFront(n)
	c.data[key] = n
	c.mu.Unlock()

	c.evict(evicted)
}

// Invalidate removes a specific key from the cache
func (c *LRU[K, V]) Invalidate(key K) {
	c.mu.Lock()
	n, ok := c.data[key]
	if ok {
		c.removeNode(n)
	}
	c.mu.Unlock()

	if ok {
		c.evict([]*node[K, V]{n})
	}
}

// Clear removes all entries from the cache
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	var evicted []*node[K, V]
	for n := c.head; n != nil; n = n.next {
		evicted = append(evicted, n)
	}
	c.data = make(map[K]*node[K, V])
	c.head = nil
	c.tail = nil
	c.mu.Unlock()

	c.evict(evicted)
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.data))
	for n := c.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// GetStats returns cache statistics
func (c *LRU[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// evict runs the callback outside the lock so it may block on native calls.
func (c *LRU[K, V]) evict(nodes []*node[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range nodes {
		c.onEvict(n.key, n.value)
	}
}

// addToFront adds a node to the front of the list
func (c *LRU[K, V]) addToFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

// moveToFront moves a node to the front of the list
func (c *LRU[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}

	c.unlink(n)
	c.addToFront(n)
}

// removeNode removes a node from the list and the index
func (c *LRU[K, V]) removeNode(n *node[K, V]) {
	c.unlink(n)
	delete(c.data, n.key)
}

func (c *LRU[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
