package catalog

import (
	"time"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Candidate is an admitted, classified listing waiting to be merged
type Candidate struct {
	Listing model.Listing
	Result  model.Result
}

// Identity returns the candidate's catalog identity
func (c Candidate) Identity() model.Identity {
	return c.Listing.Identity()
}

// Merge inserts candidates whose identity is absent from prior and discards
// the rest without field-level reconciliation. prior is not modified. New
// entries get IndexedAt = now. The second return value is the number of
// inserted entries; merging the same batch again inserts nothing.
func Merge(prior *Catalog, batch []Candidate, now time.Time) (*Catalog, int) {
	var merged *Catalog
	if prior == nil {
		merged = New()
	} else {
		merged = prior.Clone()
	}

	inserted := 0
	for _, cand := range batch {
		if !cand.Result.Admitted() {
			continue
		}
		id := cand.Identity()
		if !id.Valid() || merged.Has(id) {
			continue
		}
		merged.entries[id] = model.NewCatalogEntry(cand.Listing, cand.Result, now)
		inserted++
	}

	return merged, inserted
}
