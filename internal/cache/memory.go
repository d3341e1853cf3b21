package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps pages for the lifetime of one process
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a memory cache whose pages live for ttl
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		if page, ok := val.([]byte); ok {
			return page, true
		}
	}
	return nil, false
}

func (c *MemoryCache) Set(key string, page []byte) error {
	c.cache.SetDefault(key, page)
	return nil
}

func (c *MemoryCache) Prune() (int, error) {
	before := c.cache.ItemCount()
	c.cache.DeleteExpired()
	return before - c.cache.ItemCount(), nil
}
