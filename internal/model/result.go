package model

import "time"

// Bucket is the taxonomy classification of a design
type Bucket string

const (
	BucketSpareParts      Bucket = "spare-parts"      // Functional replacement parts
	BucketHobby           Bucket = "hobby"            // Tabletop, games, decor
	BucketAutomotive      Bucket = "automotive"       // Car parts and accessories
	BucketHomeImprovement Bucket = "home-improvement" // Tools, garden, kitchen
	BucketRejected        Bucket = "rejected"         // Discarded

	// BucketGeneral is a crawl hint only (unscoped query); it is never persisted.
	BucketGeneral Bucket = "general"
)

// Valid reports whether b is a known bucket or hint
func (b Bucket) Valid() bool {
	switch b {
	case BucketSpareParts, BucketHobby, BucketAutomotive, BucketHomeImprovement, BucketRejected, BucketGeneral:
		return true
	}
	return false
}

// Verdict is the admission decision of the classifier
type Verdict string

const (
	VerdictAdmit  Verdict = "admit"
	VerdictReject Verdict = "reject"
)

// RejectReason explains a reject verdict
type RejectReason string

const (
	ReasonNone                 RejectReason = ""
	ReasonJoke                 RejectReason = "joke"
	ReasonBrandWithoutFunction RejectReason = "brand_without_function"
	ReasonAmbiguous            RejectReason = "ambiguous"
)

// Result is the outcome of classifying one listing
type Result struct {
	Verdict         Verdict
	Bucket          Bucket
	Brand           string   // Empty when no brand applies
	Volume          *float64 // cm³; nil when unknown
	VolumeEstimated bool     // Volume is a heuristic placeholder, not a measurement
	Reason          RejectReason
}

// Admitted reports whether the listing belongs in the catalog
func (r Result) Admitted() bool {
	return r.Verdict == VerdictAdmit
}

// Reject builds a reject result
func Reject(reason RejectReason) Result {
	return Result{Verdict: VerdictReject, Bucket: BucketRejected, Reason: reason}
}

// CatalogEntry is the canonical persisted record
type CatalogEntry struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Brand           *string   `json:"brand"`
	Bucket          Bucket    `json:"bucket"`
	Category        string    `json:"category,omitempty"`
	Source          string    `json:"source"`
	ExternalID      string    `json:"external_id"`
	SourceURL       string    `json:"source_url"`
	Image           string    `json:"image,omitempty"`
	License         string    `json:"license"`
	Author          string    `json:"author"`
	Popularity      int       `json:"popularity"`
	Downloads       int       `json:"downloads"`
	ModelURL        string    `json:"model_url,omitempty"`
	Volume          *float64  `json:"volume_cm3"`
	VolumeEstimated bool      `json:"volume_estimated"`
	IndexedAt       time.Time `json:"indexed_at"`
}

// NewCatalogEntry builds the persisted record for an admitted listing
func NewCatalogEntry(l Listing, r Result, indexedAt time.Time) CatalogEntry {
	var brand *string
	if r.Brand != "" {
		b := r.Brand
		brand = &b
	}

	author := l.Author
	if author == "" {
		author = "Unknown"
	}

	return CatalogEntry{
		ID:              l.Identity().String(),
		Name:            l.Name,
		Description:     l.Description,
		Brand:           brand,
		Bucket:          r.Bucket,
		Category:        l.Category,
		Source:          l.Source,
		ExternalID:      l.ExternalID,
		SourceURL:       l.URL,
		Image:           l.ImageURL,
		License:         l.License,
		Author:          author,
		Popularity:      l.Popularity,
		Downloads:       l.Downloads,
		ModelURL:        l.ModelFileURL,
		Volume:          r.Volume,
		VolumeEstimated: r.VolumeEstimated,
		IndexedAt:       indexedAt.UTC(),
	}
}

// BrandName returns the brand or an empty string
func (e CatalogEntry) BrandName() string {
	if e.Brand == nil {
		return ""
	}
	return *e.Brand
}
