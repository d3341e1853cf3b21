package cache

import "time"

// LayeredCache checks memory first, then disk, promoting disk hits
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache creates a memory + disk page cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if page, found := c.memory.Get(key); found {
		return page, true
	}
	if page, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, page)
		return page, true
	}
	return nil, false
}

// Set stores the page in both layers
func (c *LayeredCache) Set(key string, page []byte) error {
	_ = c.memory.Set(key, page)
	return c.disk.Set(key, page)
}

// Prune drops stale pages from disk; memory expires on its own
func (c *LayeredCache) Prune() (int, error) {
	return c.disk.Prune()
}
