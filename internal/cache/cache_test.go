package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("GET", "https://api.thingiverse.com/search/gear?page=1", nil)
	b := Key("GET", "https://api.thingiverse.com/search/gear?page=2", nil)
	c := Key("POST", "https://api.printables.com/graphql", []byte(`{"offset":0}`))
	d := Key("POST", "https://api.printables.com/graphql", []byte(`{"offset":100}`))

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, c, d)
	assert.Equal(t, a, Key("GET", "https://api.thingiverse.com/search/gear?page=1", nil))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v")))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get("other")
	assert.False(t, ok)
}

func TestMemoryCache_Prune(t *testing.T) {
	c := NewMemoryCache(time.Millisecond, time.Hour)
	require.NoError(t, c.Set("k", []byte("v")))
	time.Sleep(5 * time.Millisecond)

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("k", []byte("page")))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("page"), got)

	now = now.Add(2 * time.Hour)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_TTLAppliesToStoredPages(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	long := NewDiskCache(dir, 24*time.Hour)
	long.now = func() time.Time { return now }
	require.NoError(t, long.Set("k", []byte("page")))

	short := NewDiskCache(dir, time.Hour)
	short.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok := short.Get("k")
	assert.False(t, ok, "age is checked against the reader's ttl")
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("old", []byte("a")))
	now = now.Add(50 * time.Minute)
	require.NoError(t, c.Set("fresh", []byte("b")))
	require.NoError(t, os.WriteFile(c.path("corrupt"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))
	now = now.Add(20 * time.Minute)

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestDiskCache_PruneMissingDir(t *testing.T) {
	removed, err := NewDiskCache(filepath.Join(t.TempDir(), "absent"), time.Hour).Prune()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewDiskCache(dir, time.Hour).Set("k", []byte("v")))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, os.RemoveAll(dir))
	got, ok = c.Get("k")
	require.True(t, ok, "served from memory after promotion")
	assert.Equal(t, []byte("v"), got)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set("k", []byte("v")))
	_, ok := c.Get("k")
	assert.False(t, ok)
}
