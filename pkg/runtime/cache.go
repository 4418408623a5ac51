package runtime

import (
	"container/list"
	"context"
	"sync"

	"github.com/clauselab/regula/pkg/compiler"
)

// Cache is a content-addressed store of compiled rules keyed by content
// hash. Compilation is idempotent, so concurrent fills of the same key are
// safe to execute redundantly; implementations resolve them
// last-writer-wins.
type Cache interface {
	Get(ctx context.Context, contentHash string) (*compiler.CompiledRule, bool)
	Put(ctx context.Context, contentHash string, compiled *compiler.CompiledRule)
}

// LRUCache is a bounded in-memory Cache. Correctness does not require
// eviction at all; the bound keeps memory flat when many rule versions
// accumulate.
type LRUCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List               // front = most recent
	entries map[string]*list.Element // hash -> element holding *lruEntry
}

type lruEntry struct {
	hash     string
	compiled *compiler.CompiledRule
}

// DefaultCacheSize bounds the LRU cache when no explicit size is given.
const DefaultCacheSize = 1024

// NewLRUCache builds a bounded cache; size <= 0 falls back to
// DefaultCacheSize.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &LRUCache{
		max:     size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *LRUCache) Get(_ context.Context, contentHash string) (*compiler.CompiledRule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[contentHash]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).compiled, true
}

func (c *LRUCache) Put(_ context.Context, contentHash string, compiled *compiler.CompiledRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[contentHash]; ok {
		// Last writer wins; entries for the same hash are identical anyway.
		elem.Value.(*lruEntry).compiled = compiled
		c.order.MoveToFront(elem)
		return
	}
	c.entries[contentHash] = c.order.PushFront(&lruEntry{hash: contentHash, compiled: compiled})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).hash)
	}
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
