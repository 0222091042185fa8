// Package memo provides small instance-scoped caches with explicit
// ownership. Entries are keyed by an owner (typically one open device
// handle) plus a lookup key, so closing an owner evicts exactly its
// entries and nothing else. Caches can join a Group to be flushed
// together, the way a client drops everything it learned when it
// reconnects.
package memo

import "sync"

type invalidator interface {
	InvalidateAll()
}

// Group ties caches together for collective invalidation.
type Group struct {
	mu      sync.Mutex
	members []invalidator
}

func (g *Group) add(c invalidator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, c)
}

// InvalidateAll flushes every cache in the group.
func (g *Group) InvalidateAll() {
	g.mu.Lock()
	members := make([]invalidator, len(g.members))
	copy(members, g.members)
	g.mu.Unlock()
	for _, c := range members {
		c.InvalidateAll()
	}
}

type entryKey[O, K comparable] struct {
	owner O
	key   K
}

// Cache memoizes one kind of lookup per owner. The zero value is not
// usable; construct with New.
type Cache[O, K comparable, V any] struct {
	mu      sync.Mutex
	entries map[entryKey[O, K]]V
}

// New returns an empty cache. A non-nil group registers the cache for
// collective invalidation.
func New[O, K comparable, V any](g *Group) *Cache[O, K, V] {
	c := &Cache[O, K, V]{entries: map[entryKey[O, K]]V{}}
	if g != nil {
		g.add(c)
	}
	return c
}

// Get returns the cached value for the owner's key.
func (c *Cache[O, K, V]) Get(owner O, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[entryKey[O, K]{owner, key}]
	return v, ok
}

// Put stores the value for the owner's key, replacing any previous one.
func (c *Cache[O, K, V]) Put(owner O, key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entryKey[O, K]{owner, key}] = value
}

// GetOrCompute returns the cached value for the owner's key, computing
// and storing it on a miss. Failed computations are not cached.
func (c *Cache[O, K, V]) GetOrCompute(owner O, key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(owner, key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(owner, key, v)
	return v, nil
}

// Invalidate drops one entry.
func (c *Cache[O, K, V]) Invalidate(owner O, key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entryKey[O, K]{owner, key})
}

// InvalidateOwner drops every entry of one owner, leaving other owners
// untouched.
func (c *Cache[O, K, V]) InvalidateOwner(owner O) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.owner == owner {
			delete(c.entries, k)
		}
	}
}

// InvalidateAll empties the cache.
func (c *Cache[O, K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of cached entries.
func (c *Cache[O, K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
