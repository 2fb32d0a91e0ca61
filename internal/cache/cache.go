// Package cache memoises query results behind a bounded LRU with optional
// TTL. A single-slot front cache is checked first for the common
// repeat-the-last-query case; a hit there is still verified against the
// shared entry under the cache lock.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/pathfinder/internal/searchtypes"
)

const DefaultCapacity = 1000

type entry struct {
	key          string
	value        []searchtypes.Result
	lastAccessed time.Time
	insertedAt   time.Time
	prev, next   *entry
}

// frontSlot is the most-recent-query fast path. The key hash is compared
// before the key itself so a miss costs one integer compare.
type frontSlot struct {
	hash  uint64
	key   string
	value []searchtypes.Result
}

// Cache is safe for concurrent use. A plain mutex guards the shared
// structure: even Get reorders the LRU list, so a reader-writer lock would
// serialise anyway.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration // 0 disables expiry
	items    map[string]*entry
	head     *entry // most recently used
	tail     *entry // eviction candidate

	front atomic.Pointer[frontSlot]

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache bounded to capacity entries; ttl of zero means
// entries never expire.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
	}
}

// Get returns a copy of the cached value and true on a hit. Expired entries
// are evicted on access. Hits promote the entry to the head of the list.
func (c *Cache) Get(key string) ([]searchtypes.Result, bool) {
	now := time.Now()

	if slot := c.front.Load(); slot != nil && slot.hash == xxhash.Sum64String(key) && slot.key == key {
		// The slot is only trusted after verifying the shared entry is
		// still live and fresh; a stale slot is dropped.
		c.mu.Lock()
		e, ok := c.items[key]
		if ok && !c.expired(e, now) {
			e.lastAccessed = now
			c.moveToHead(e)
			c.mu.Unlock()
			c.hits.Add(1)
			return searchtypes.CloneResults(slot.value), true
		}
		if ok {
			c.unlink(e)
			delete(c.items, key)
		}
		c.mu.Unlock()
		c.front.CompareAndSwap(slot, nil)
		c.misses.Add(1)
		return nil, false
	}

	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	if c.expired(e, now) {
		c.unlink(e)
		delete(c.items, key)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	e.lastAccessed = now
	c.moveToHead(e)
	value := searchtypes.CloneResults(e.value)
	c.mu.Unlock()

	c.setFront(key, value)
	c.hits.Add(1)
	return value, true
}

// Insert stores a value, overwriting any previous entry for the key. The
// tail entry is evicted once the capacity is exceeded. O(1).
func (c *Cache) Insert(key string, value []searchtypes.Result) {
	stored := searchtypes.CloneResults(value)
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		e.value = stored
		e.insertedAt = now
		e.lastAccessed = now
		c.moveToHead(e)
		c.mu.Unlock()
		c.setFront(key, stored)
		return
	}

	e := &entry{key: key, value: stored, insertedAt: now, lastAccessed: now}
	c.items[key] = e
	c.pushHead(e)
	if len(c.items) > c.capacity {
		evict := c.tail
		c.unlink(evict)
		delete(c.items, evict.key)
	}
	c.mu.Unlock()

	c.setFront(key, stored)
}

// Remove drops a key. Idempotent.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
	c.mu.Unlock()
	c.clearFrontIf(func(k string) bool { return k == key })
}

// RemoveMatching drops every entry whose key satisfies the predicate and
// returns how many were removed.
func (c *Cache) RemoveMatching(match func(key string) bool) int {
	c.mu.Lock()
	removed := 0
	for key, e := range c.items {
		if match(key) {
			c.unlink(e)
			delete(c.items, key)
			removed++
		}
	}
	c.mu.Unlock()
	c.clearFrontIf(match)
	return removed
}

// InvalidatePrefixes drops every entry whose key is a prefix of any target
// string. Targets are the filename, stem and ancestor directory names of a
// mutated path.
func (c *Cache) InvalidatePrefixes(targets []string) int {
	return c.RemoveMatching(func(key string) bool {
		for _, t := range targets {
			if strings.HasPrefix(t, key) {
				return true
			}
		}
		return false
	})
}

// PurgeExpired removes entries older than the TTL and returns the count.
func (c *Cache) PurgeExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	now := time.Now()
	removedKeys := make(map[string]bool)

	c.mu.Lock()
	for key, e := range c.items {
		if c.expired(e, now) {
			c.unlink(e)
			delete(c.items, key)
			removedKeys[key] = true
		}
	}
	c.mu.Unlock()

	c.clearFrontIf(func(k string) bool { return removedKeys[k] })
	return len(removedKeys)
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*entry, c.capacity)
	c.head = nil
	c.tail = nil
	c.mu.Unlock()
	c.front.Store(nil)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.insertedAt) > c.ttl
}

func (c *Cache) setFront(key string, value []searchtypes.Result) {
	c.front.Store(&frontSlot{hash: xxhash.Sum64String(key), key: key, value: value})
}

func (c *Cache) clearFrontIf(match func(string) bool) {
	if slot := c.front.Load(); slot != nil && match(slot.key) {
		c.front.CompareAndSwap(slot, nil)
	}
}

// List plumbing. head/tail are plain pointers, not sentinels.

func (c *Cache) pushHead(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *Cache) moveToHead(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushHead(e)
}
