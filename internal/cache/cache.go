// Package cache implements the bounded page-content cache (C14): a
// title-keyed LRU with a miss counter, adapted from peer-db's
// internal/es/cache.go.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

// Cache is an LRU cache of recently fetched pages, keyed by the title
// string exactly as given (titles are not normalized), which counts cache
// misses.
type Cache struct {
	*lru.Cache[string, domain.Page]

	missCount uint64
}

// New creates a page cache holding at most size entries.
func New(size int) (*Cache, errors.E) {
	c, err := lru.New[string, domain.Page](size)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Cache{Cache: c}, nil
}

// Get retrieves a page from the cache and tracks cache misses.
func (c *Cache) Get(title string) (domain.Page, bool) {
	page, ok := c.Cache.Get(title)
	if !ok {
		atomic.AddUint64(&c.missCount, 1)
	}
	return page, ok
}

// MissCount returns the number of cache misses since the last call of
// MissCount (or since the cache was created).
func (c *Cache) MissCount() uint64 {
	return atomic.SwapUint64(&c.missCount, 0)
}
