// Package source talks to the external design catalogs.
package source

import (
	"context"
	"errors"

	"github.com/ppiankov/fixit3d/internal/model"
)

// ErrMissingCredential is returned when a source that requires a token has none
var ErrMissingCredential = errors.New("missing credential")

// Sort is the requested result ordering
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortNewest    Sort = "newest"
)

// Pagination describes how a source pages its results
type Pagination string

const (
	PaginationPage   Pagination = "page"
	PaginationOffset Pagination = "offset"
)

// Capabilities are declared by each adapter
type Capabilities struct {
	// HonorsSort is false when the source ignores the requested ordering;
	// the incremental stop rule is unsafe for such sources.
	HonorsSort bool
	Pagination Pagination
}

// Query asks for one page of results for a search term. Page is 1-based.
type Query struct {
	Term string
	Sort Sort
	Page int
}

// Page is one page of normalized listings
type Page struct {
	Listings []model.Listing
	HasMore  bool
	// FromCache is set when the page was served from the page cache
	FromCache bool
}

// Adapter fetches and normalizes listings from one external catalog
type Adapter interface {
	// Name returns the source tag used as identity prefix
	Name() string

	// Capabilities describes sort and pagination behaviour
	Capabilities() Capabilities

	// FetchPage retrieves one page. Any error means the page is unavailable.
	FetchPage(ctx context.Context, q Query) (Page, error)
}
