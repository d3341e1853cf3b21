package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const pageExt = ".page.json"

// DiskCache persists pages across runs, so a full crawl interrupted and
// restarted within ttl does not refetch the pages it already walked.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

type pageEntry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Page      []byte    `json:"page"`
}

// Get returns a page fetched less than ttl ago; stale or unreadable files are misses
func (c *DiskCache) Get(key string) ([]byte, bool) {
	entry, err := c.read(c.path(key))
	if err != nil || c.expired(entry) {
		return nil, false
	}
	return entry.Page, true
}

func (c *DiskCache) Set(key string, page []byte) error {
	data, err := json.Marshal(pageEntry{FetchedAt: c.now().UTC(), Page: page})
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Prune removes stale and unreadable page files. A missing dir is empty.
func (c *DiskCache) Prune() (int, error) {
	files, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), pageExt) {
			continue
		}
		path := filepath.Join(c.dir, f.Name())
		if entry, err := c.read(path); err == nil && !c.expired(entry) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", f.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (c *DiskCache) read(path string) (pageEntry, error) {
	var entry pageEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(data, &entry)
	return entry, err
}

func (c *DiskCache) expired(entry pageEntry) bool {
	return c.now().Sub(entry.FetchedAt) > c.ttl
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+pageExt)
}
