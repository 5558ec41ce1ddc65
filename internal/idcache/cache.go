// Package idcache caches resolved work-item identities by issue key.
//
// Lark has no direct get-by-key lookup: resolving a key means enumerating
// every work-item type in the space and probing each with a batch query.
// The cache remembers the resolved (typeKey, entityID) pair per key with a
// TTL so repeat lookups skip re-enumeration. Entries are bounded by a
// strict least-recently-used policy; the LRU order is an explicit key
// slice with the most-recently-used key at the tail, which is also the
// persisted wire format.
package idcache

import (
	"time"

	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/statestore"
)

// Capacity is the fixed maximum number of cached identities.
const Capacity = 100

// Entry is one resolved identity with an absolute expiry.
type Entry struct {
	TypeKey   string `json:"type_key"`
	EntityID  string `json:"entity_id"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// Cache maps issue keys to resolved identities with TTL and LRU eviction.
type Cache struct {
	store   *statestore.Store
	entries map[string]Entry
	order   []string // LRU order, most-recently-used at the tail

	now func() time.Time

	hits   int
	misses int
}

// Load builds a cache from the persisted blobs. Corrupt or missing state
// loads as an empty cache; identities are re-derivable from the tracker.
func Load(store *statestore.Store) *Cache {
	c := &Cache{
		store:   store,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	if _, err := store.Load(statestore.BlobItemCache, &c.entries); err != nil {
		debug.Logf("idcache: discarding corrupt entries blob: %v", err)
		c.entries = make(map[string]Entry)
	}
	if c.entries == nil {
		c.entries = make(map[string]Entry)
	}
	if _, err := store.Load(statestore.BlobItemCacheLRU, &c.order); err != nil {
		debug.Logf("idcache: discarding corrupt order blob: %v", err)
		c.order = nil
	}

	// Reconcile order with entries: drop order keys without an entry and
	// append entries missing from the order list.
	seen := make(map[string]bool, len(c.order))
	keep := c.order[:0]
	for _, k := range c.order {
		if _, ok := c.entries[k]; ok && !seen[k] {
			keep = append(keep, k)
			seen[k] = true
		}
	}
	c.order = keep
	for k := range c.entries {
		if !seen[k] {
			c.order = append(c.order, k)
		}
	}

	return c
}

// Get returns the cached identity iff present and unexpired, marking the
// key most-recently-used. An expired entry is deleted as a side effect of
// the failed lookup. Misses are not errors; callers fall back to a full
// tracker lookup and repopulate.
func (c *Cache) Get(key string) (typeKey, entityID string, ok bool) {
	e, present := c.entries[key]
	if !present {
		c.misses++
		return "", "", false
	}
	if !c.now().Before(time.Unix(e.ExpiresAt, 0)) {
		delete(c.entries, key)
		c.dropFromOrder(key)
		c.persist()
		c.misses++
		return "", "", false
	}
	c.touch(key)
	c.hits++
	return e.TypeKey, e.EntityID, true
}

// Set inserts or overwrites the identity for key. A new key at capacity
// evicts exactly the least-recently-used key first. The cache is persisted
// synchronously before returning.
func (c *Cache) Set(key, typeKey, entityID string, ttl time.Duration) error {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= Capacity {
		lru := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, lru)
	}

	c.entries[key] = Entry{
		TypeKey:   typeKey,
		EntityID:  entityID,
		ExpiresAt: c.now().Add(ttl).Unix(),
	}
	c.touch(key)
	return c.persistErr()
}

// Clear removes a single key and its LRU position.
func (c *Cache) Clear(key string) {
	delete(c.entries, key)
	c.dropFromOrder(key)
	c.persist()
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() {
	c.entries = make(map[string]Entry)
	c.order = nil
	c.persist()
}

// Len returns the number of cached entries, including expired ones not
// yet purged by a lookup.
func (c *Cache) Len() int { return len(c.entries) }

// Stats returns session hit/miss counters.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }

// touch moves key to the most-recently-used position (tail).
func (c *Cache) touch(key string) {
	c.dropFromOrder(key)
	c.order = append(c.order, key)
}

func (c *Cache) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) persistErr() error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(statestore.BlobItemCache, c.entries); err != nil {
		return err
	}
	return c.store.Save(statestore.BlobItemCacheLRU, c.order)
}

func (c *Cache) persist() {
	if err := c.persistErr(); err != nil {
		debug.Logf("idcache: persist failed: %v", err)
	}
}
