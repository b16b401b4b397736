package pipeline

import (
	"encoding/json"
	"sync"
)

// CachedExtraction is a successful raw extraction kept for reuse.
type CachedExtraction struct {
	Raw       json.RawMessage
	ModelUsed string
}

// ExtractionCache memoizes successful extraction output per document and
// model selector. Repeated extraction calls are common during interactive
// review; a hit skips the model backend entirely.
type ExtractionCache interface {
	Get(key string) (CachedExtraction, bool)
	Put(key string, entry CachedExtraction)
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]CachedExtraction
}

// NewMemoryCache creates an in-process ExtractionCache with no eviction.
// Entries are small (normalized-size JSON) and keyed per file+model, so
// growth is bounded by upload volume within one process lifetime.
func NewMemoryCache() ExtractionCache {
	return &memoryCache{entries: map[string]CachedExtraction{}}
}

func (c *memoryCache) Get(key string) (CachedExtraction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *memoryCache) Put(key string, entry CachedExtraction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}
