package region

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/tarantool/go-rangekv/kv"
)

// cacheDegree is the branching factor of the descriptor B-tree.
const cacheDegree = 16

// cacheEntry is a single cached routing result, ordered by the end key of its
// region so that the owner of a key is the first entry whose end key is
// greater than the key.
type cacheEntry struct {
	routing Routing
}

func entryLess(a, b cacheEntry) bool {
	return kv.CompareEnd(a.routing.Region.EndKey, b.routing.Region.EndKey) < 0
}

// Cache is a caching Directory decorator. Lookups are served from an in-memory
// tree of descriptors keyed by region end key; misses fall through to the
// wrapped authoritative directory and the answer is cached for subsequent
// resolutions.
//
// Cache is safe for concurrent use. It is the only state shared between
// operations in flight.
type Cache struct {
	authority Directory

	mu   sync.RWMutex
	tree *btree.BTreeG[cacheEntry]
	byID map[uint64]cacheEntry
}

var _ Directory = &Cache{}

// NewCache returns a Cache backed by the given authoritative directory.
func NewCache(authority Directory) *Cache {
	return &Cache{
		authority: authority,
		tree:      btree.NewG(cacheDegree, entryLess),
		byID:      make(map[uint64]cacheEntry),
	}
}

// Resolve implements the Directory interface. It returns the cached routing
// for key when one is present, otherwise it consults the authoritative
// directory and caches the result.
func (c *Cache) Resolve(ctx context.Context, key []byte) (Routing, error) {
	if routing, ok := c.lookup(key); ok {
		return routing, nil
	}

	routing, err := c.authority.Resolve(ctx, key)
	if err != nil {
		return Routing{}, err
	}

	c.insert(routing)

	return routing, nil
}

// Invalidate implements the Directory interface. It drops the cached entry for
// the region with the given id and forwards the invalidation to the
// authoritative directory.
func (c *Cache) Invalidate(id uint64) {
	c.mu.Lock()

	if entry, ok := c.byID[id]; ok {
		c.tree.Delete(entry)
		delete(c.byID, id)
	}

	c.mu.Unlock()

	c.authority.Invalidate(id)
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tree.Len()
}

// lookup finds a cached entry whose region contains key.
func (c *Cache) lookup(key []byte) (Routing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// The owning region has end key strictly greater than key, that is at
	// least Next(key) under the end-key ordering.
	pivot := cacheEntry{routing: Routing{Region: Descriptor{EndKey: kv.Next(key)}}}

	var (
		found Routing
		ok    bool
	)

	c.tree.AscendGreaterOrEqual(pivot, func(entry cacheEntry) bool {
		if entry.routing.Region.Contains(key) {
			found, ok = entry.routing, true
		}

		return false
	})

	return found, ok
}

// insert caches a freshly resolved routing, evicting any cached entries whose
// ranges overlap the new descriptor. Overlaps appear after splits and merges,
// when stale siblings of the new descriptor may still be cached.
func (c *Cache) insert(routing Routing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	desc := routing.Region
	pivot := cacheEntry{routing: Routing{Region: Descriptor{EndKey: kv.Next(desc.StartKey)}}}

	var stale []cacheEntry

	c.tree.AscendGreaterOrEqual(pivot, func(entry cacheEntry) bool {
		if len(desc.EndKey) != 0 && kv.Compare(entry.routing.Region.StartKey, desc.EndKey) >= 0 {
			return false
		}

		stale = append(stale, entry)

		return true
	})

	for _, entry := range stale {
		c.tree.Delete(entry)
		delete(c.byID, entry.routing.Region.ID)
	}

	entry := cacheEntry{routing: routing}
	c.tree.ReplaceOrInsert(entry)
	c.byID[desc.ID] = entry
}
