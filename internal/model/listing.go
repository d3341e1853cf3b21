package model

// Listing is a raw design record as returned by an external catalog
type Listing struct {
	Source       string `json:"source"`                // Source tag (e.g., "thingiverse")
	ExternalID   string `json:"external_id"`           // ID on the source site
	Name         string `json:"name"`                  // Design title
	Description  string `json:"description,omitempty"` // Free-text description or summary
	ImageURL     string `json:"image,omitempty"`       // Preview image
	License      string `json:"license,omitempty"`     // License name as reported by the source
	Author       string `json:"author,omitempty"`      // Creator display name
	Popularity   int    `json:"popularity"`            // Likes / favorites
	Downloads    int    `json:"downloads"`             // Download count
	URL          string `json:"source_url"`            // Canonical page on the source site
	ModelFileURL string `json:"model_url,omitempty"`   // Mesh download (used for volume measurement)
	Category     string `json:"category,omitempty"`    // Crawl category that surfaced the listing
}

// Identity returns the permanent catalog identity of the listing
func (l Listing) Identity() Identity {
	return Identity{Source: l.Source, ExternalID: l.ExternalID}
}
