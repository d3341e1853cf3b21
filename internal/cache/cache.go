// Package cache stores source result pages between runs. Only pages fetched
// in relevance order are cached; newest-first pages change between runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache keeps fetched result pages by request key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, page []byte) error
	// Prune drops expired pages and returns how many were removed
	Prune() (int, error)
}

// Key derives a cache key from a request. The body is part of the key so
// that GraphQL requests to a single endpoint stay distinct.
func Key(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write(body)
	return "fixit3d-page-v1-" + hex.EncodeToString(h.Sum(nil))
}

// Nop is a cache that stores nothing
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte) error { return nil }
func (Nop) Prune() (int, error) { return 0, nil }
