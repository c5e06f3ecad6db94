// Package ttlcache provides a bounded in-memory key/value cache with
// per-entry TTL expiry and least-recently-used eviction.
//
// Values are stored as opaque byte slices; callers cache serialized forms so
// cached data is immutable by construction. Expired entries are treated as
// absent on read and reclaimed lazily on write. The zero eviction policy is
// strict LRU, which is deterministic for testing.
package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity bounds a cache constructed with capacity <= 0.
const DefaultCapacity = 1000

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Cache is a bounded TTL + LRU cache. It is safe for concurrent use.
// Concurrent puts on the same key are last-write-wins.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	// now is replaceable in tests.
	now func() time.Time
}

// New returns a cache bounded to capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the value stored under key, or ok=false if the key is absent
// or its TTL has elapsed. A hit refreshes the key's recency.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Put stores value under key with the given TTL, overwriting any previous
// entry wholesale. A non-positive TTL stores nothing. When at capacity the
// least recently used entry is evicted first.
func (c *Cache) Put(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.evictExpiredLocked()
	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	elem := c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = elem
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of live (unexpired) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()
	return len(c.entries)
}

func (c *Cache) evictExpiredLocked() {
	now := c.now()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if ent := elem.Value.(*entry); !now.Before(ent.expiresAt) {
			c.removeLocked(elem)
		}
		elem = prev
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	ent := elem.Value.(*entry)
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}
