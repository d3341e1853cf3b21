package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/fixit3d/internal/model"
)

const thingiverseName = "thingiverse"

// Thingiverse searches the Thingiverse REST API
type Thingiverse struct {
	fetcher *Fetcher
	baseURL string
	token   string
	perPage int
}

// NewThingiverse creates the adapter; the API requires a bearer token
func NewThingiverse(fetcher *Fetcher, cfg model.SourceConfig) (*Thingiverse, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token required: %w", ErrMissingCredential)
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 40
	}

	return &Thingiverse{
		fetcher: fetcher,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		perPage: perPage,
	}, nil
}

func (t *Thingiverse) Name() string { return thingiverseName }

func (t *Thingiverse) Capabilities() Capabilities {
	return Capabilities{HonorsSort: true, Pagination: PaginationPage}
}

type thingiverseSearch struct {
	Total int              `json:"total"`
	Hits  []thingiverseHit `json:"hits"`
}

type thingiverseHit struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PublicURL     string `json:"public_url"`
	License       string `json:"license"`
	PreviewImage  string `json:"preview_image"`
	LikeCount     int    `json:"like_count"`
	LikesCount    int    `json:"likes_count"`
	DownloadCount int    `json:"download_count"`
	Creator       *struct {
		Name string `json:"name"`
	} `json:"creator"`
}

// FetchPage runs GET /search/{term}
func (t *Thingiverse) FetchPage(ctx context.Context, q Query) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("sort", thingiverseSort(q.Sort))
	params.Set("per_page", strconv.Itoa(t.perPage))
	params.Set("page", strconv.Itoa(page))

	resp, err := t.fetcher.FetchWithRetry(ctx, Request{
		URL:       fmt.Sprintf("%s/search/%s?%s", t.baseURL, url.PathEscape(q.Term), params.Encode()),
		Headers:   map[string]string{"Authorization": "Bearer " + t.token},
		Cacheable: q.Sort != SortNewest,
	})
	if err != nil {
		return Page{}, fmt.Errorf("thingiverse search %q page %d: %w", q.Term, page, err)
	}

	var result thingiverseSearch
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return Page{}, fmt.Errorf("decode thingiverse search: %w", err)
	}

	listings := make([]model.Listing, 0, len(result.Hits))
	for _, hit := range result.Hits {
		listings = append(listings, hit.listing())
	}

	hasMore := len(result.Hits) > 0
	if result.Total > 0 {
		hasMore = hasMore && page*t.perPage < result.Total
	}

	return Page{Listings: listings, HasMore: hasMore, FromCache: resp.FromCache}, nil
}

func (h thingiverseHit) listing() model.Listing {
	l := model.Listing{
		Source:      thingiverseName,
		ExternalID:  strconv.FormatInt(h.ID, 10),
		Name:        h.Name,
		Description: h.Description,
		ImageURL:    h.PreviewImage,
		License:     h.License,
		Popularity:  max(h.LikeCount, h.LikesCount),
		Downloads:   h.DownloadCount,
		URL:         h.PublicURL,
	}
	if h.Creator != nil {
		l.Author = h.Creator.Name
	}
	return l
}

func thingiverseSort(s Sort) string {
	if s == SortNewest {
		return "newest"
	}
	return "relevant"
}
