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

const (
	myMiniFactoryName      = "myminifactory"
	myMiniFactoryObjectURL = "https://www.myminifactory.com/object/3d-print-"
)

// MyMiniFactory searches the MyMiniFactory v2 API. The search endpoint has
// no ordering parameter, so the adapter does not honor Query.Sort.
type MyMiniFactory struct {
	fetcher *Fetcher
	baseURL string
	token   string
	perPage int
}

// NewMyMiniFactory creates the adapter; the API requires a bearer token
func NewMyMiniFactory(fetcher *Fetcher, cfg model.SourceConfig) (*MyMiniFactory, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token required: %w", ErrMissingCredential)
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	return &MyMiniFactory{
		fetcher: fetcher,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		perPage: perPage,
	}, nil
}

func (m *MyMiniFactory) Name() string { return myMiniFactoryName }

func (m *MyMiniFactory) Capabilities() Capabilities {
	return Capabilities{HonorsSort: false, Pagination: PaginationPage}
}

type mmfSearch struct {
	TotalCount int       `json:"total_count"`
	Items      []mmfItem `json:"items"`
}

type mmfItem struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Likes       int        `json:"likes"`
	Downloads   int        `json:"download_count"`
	License     string     `json:"license"`
	Images      []mmfImage `json:"images"`
	Designer    *struct {
		Username string `json:"username"`
	} `json:"designer"`
}

type mmfImage struct {
	Original json.RawMessage `json:"original"`
}

// url accepts both {"original": "https://..."} and {"original": {"url": "https://..."}}
func (i mmfImage) url() string {
	var s string
	if err := json.Unmarshal(i.Original, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(i.Original, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// FetchPage runs GET /search?q=
func (m *MyMiniFactory) FetchPage(ctx context.Context, q Query) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("q", q.Term)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(m.perPage))

	resp, err := m.fetcher.FetchWithRetry(ctx, Request{
		URL:       m.baseURL + "/search?" + params.Encode(),
		Headers:   map[string]string{"Authorization": "Bearer " + m.token},
		Cacheable: q.Sort != SortNewest,
	})
	if err != nil {
		return Page{}, fmt.Errorf("myminifactory search %q page %d: %w", q.Term, page, err)
	}

	var result mmfSearch
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return Page{}, fmt.Errorf("decode myminifactory search: %w", err)
	}

	listings := make([]model.Listing, 0, len(result.Items))
	for _, item := range result.Items {
		listings = append(listings, item.listing())
	}

	hasMore := len(result.Items) >= m.perPage
	if result.TotalCount > 0 {
		hasMore = len(result.Items) > 0 && page*m.perPage < result.TotalCount
	}

	return Page{Listings: listings, HasMore: hasMore, FromCache: resp.FromCache}, nil
}

func (it mmfItem) listing() model.Listing {
	id := strconv.FormatInt(it.ID, 10)
	l := model.Listing{
		Source:      myMiniFactoryName,
		ExternalID:  id,
		Name:        it.Name,
		Description: it.Description,
		License:     it.License,
		Popularity:  it.Likes,
		Downloads:   it.Downloads,
		URL:         it.URL,
	}
	if l.URL == "" {
		l.URL = myMiniFactoryObjectURL + id
	}
	if len(it.Images) > 0 {
		l.ImageURL = it.Images[0].url()
	}
	if it.Designer != nil {
		l.Author = it.Designer.Username
	}
	return l
}
