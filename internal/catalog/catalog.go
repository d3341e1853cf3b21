// Package catalog holds the persisted catalog in memory and merges newly
// classified listings into it.
package catalog

import (
	"fmt"
	"sort"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Catalog maps identities to entries. Entries are never overwritten.
type Catalog struct {
	entries map[model.Identity]model.CatalogEntry
}

// New returns an empty catalog
func New() *Catalog {
	return &Catalog{entries: make(map[model.Identity]model.CatalogEntry)}
}

// FromEntries rebuilds a catalog from a loaded snapshot. Entries whose key
// cannot be parsed or does not match their source are returned as skipped;
// for duplicate keys the first record wins.
func FromEntries(entries []model.CatalogEntry) (*Catalog, []error) {
	c := New()
	var skipped []error

	for i, e := range entries {
		inserted, err := c.Insert(e)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if !inserted {
			skipped = append(skipped, fmt.Errorf("entry %d: duplicate key %q", i, e.ID))
		}
	}

	return c, skipped
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Has reports whether an entry with the identity exists
func (c *Catalog) Has(id model.Identity) bool {
	_, ok := c.entries[id]
	return ok
}

// Get returns the entry for an identity
func (c *Catalog) Get(id model.Identity) (model.CatalogEntry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Insert adds an entry unless the identity is already present and reports
// whether it was added. A missing source or external id is filled from the
// key; a source that contradicts the key is an error.
func (c *Catalog) Insert(e model.CatalogEntry) (bool, error) {
	id, err := model.ParseIdentity(e.ID)
	if err != nil {
		return false, err
	}
	if e.Source != "" && e.Source != id.Source {
		return false, fmt.Errorf("key %q does not match source %q", e.ID, e.Source)
	}
	if _, exists := c.entries[id]; exists {
		return false, nil
	}
	if e.Source == "" {
		e.Source = id.Source
	}
	if e.ExternalID == "" {
		e.ExternalID = id.ExternalID
	}
	c.entries[id] = e
	return true, nil
}

// Clone returns a shallow copy; entries are values and never mutated
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{entries: make(map[model.Identity]model.CatalogEntry, len(c.entries))}
	for id, e := range c.entries {
		out.entries[id] = e
	}
	return out
}

// Entries returns the snapshot sorted by descending popularity. Ties are
// broken by key so the persisted file is stable.
func (c *Catalog) Entries() []model.CatalogEntry {
	out := make([]model.CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Stats summarizes catalog membership
type Stats struct {
	Total    int
	ByBucket map[model.Bucket]int
	BySource map[string]int
	Measured int
}

// Stats returns membership counts
func (c *Catalog) Stats() Stats {
	s := Stats{
		Total:    len(c.entries),
		ByBucket: make(map[model.Bucket]int),
		BySource: make(map[string]int),
	}
	for _, e := range c.entries {
		s.ByBucket[e.Bucket]++
		s.BySource[e.Source]++
		if e.Volume != nil && !e.VolumeEstimated {
			s.Measured++
		}
	}
	return s
}
