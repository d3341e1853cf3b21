package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/fixit3d/internal/cache"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThingiverse_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/Bosch spare part", r.URL.Path)
		assert.Equal(t, "newest", r.URL.Query().Get("sort"))
		assert.Equal(t, "40", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tv-token", r.Header.Get("Authorization"))

		_, _ = fmt.Fprint(w, `{"total": 120, "hits": [
			{"id": 105, "name": "Bosch MUM4 knob", "description": "<p>Replacement knob</p>",
			 "public_url": "https://www.thingiverse.com/thing:105", "license": "CC-BY",
			 "preview_image": "https://cdn/105.jpg", "like_count": 12, "download_count": 40,
			 "creator": {"name": "maker"}},
			{"id": 104, "name": "No image clip", "likes_count": 3}
		]}`)
	}))
	defer server.Close()

	adapter, err := NewThingiverse(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{
		BaseURL: server.URL + "/", Token: "tv-token", PerPage: 40,
	})
	require.NoError(t, err)

	page, err := adapter.FetchPage(context.Background(), Query{Term: "Bosch spare part", Sort: SortNewest, Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.True(t, page.HasMore)

	first := page.Listings[0]
	assert.Equal(t, "thingiverse", first.Source)
	assert.Equal(t, "105", first.ExternalID)
	assert.Equal(t, "Bosch MUM4 knob", first.Name)
	assert.Equal(t, "https://cdn/105.jpg", first.ImageURL)
	assert.Equal(t, "CC-BY", first.License)
	assert.Equal(t, "maker", first.Author)
	assert.Equal(t, 12, first.Popularity)
	assert.Equal(t, 40, first.Downloads)
	assert.Equal(t, "https://www.thingiverse.com/thing:105", first.URL)

	second := page.Listings[1]
	assert.Empty(t, second.ImageURL)
	assert.Equal(t, 3, second.Popularity)
	assert.Empty(t, second.Author)
}

func TestThingiverse_LastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "relevant", r.URL.Query().Get("sort"))
		_, _ = fmt.Fprint(w, `{"total": 41, "hits": [{"id": 1, "name": "gear"}]}`)
	}))
	defer server.Close()

	adapter, err := NewThingiverse(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{BaseURL: server.URL, Token: "x"})
	require.NoError(t, err)

	page, err := adapter.FetchPage(context.Background(), Query{Term: "gear", Sort: SortRelevance, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Listings, 1)
	assert.False(t, page.HasMore)
}

func TestThingiverse_ErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter, err := NewThingiverse(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{BaseURL: server.URL, Token: "bad"})
	require.NoError(t, err)

	_, err = adapter.FetchPage(context.Background(), Query{Term: "gear", Page: 1})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestThingiverse_RequiresToken(t *testing.T) {
	_, err := NewThingiverse(nil, model.SourceConfig{BaseURL: "https://api.thingiverse.com"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestPrintables_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req graphQLRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "hinge", req.Variables["query"])
		assert.Equal(t, float64(2), req.Variables["limit"])
		assert.Equal(t, float64(4), req.Variables["offset"])
		assert.Equal(t, "-likes_count", req.Variables["ordering"])
		assert.Contains(t, req.Query, "ordering: $ordering, licenseType: COMMERCIAL_USE_ALLOWED)")

		_, _ = fmt.Fprint(w, `{"data": {"prints": [
			{"id": "77", "name": "Door hinge", "summary": "Sturdy", "slug": "77-door-hinge",
			 "likesCount": 25, "downloadsCount": 100, "license": {"name": "CC BY"},
			 "images": [{"filePath": "media/77.png"}], "user": {"publicUsername": "pr"},
			 "stlFiles": [{"url": "https://files/77.stl"}]},
			{"id": "78", "name": "Hinge pin", "likesCount": 1}
		]}}`)
	}))
	defer server.Close()

	adapter, err := NewPrintables(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{
		BaseURL: server.URL, PerPage: 2, License: "COMMERCIAL_USE_ALLOWED",
	})
	require.NoError(t, err)
	assert.Equal(t, PaginationOffset, adapter.Capabilities().Pagination)

	page, err := adapter.FetchPage(context.Background(), Query{Term: "hinge", Sort: SortRelevance, Page: 3})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.True(t, page.HasMore)

	first := page.Listings[0]
	assert.Equal(t, model.Identity{Source: "printables", ExternalID: "77"}, first.Identity())
	assert.Equal(t, "https://www.printables.com/model/77-door-hinge", first.URL)
	assert.Equal(t, "https://files/77.stl", first.ModelFileURL)
	assert.Equal(t, "media/77.png", first.ImageURL)
	assert.Equal(t, "CC BY", first.License)
	assert.Equal(t, "pr", first.Author)
	assert.Equal(t, 25, first.Popularity)
	assert.Empty(t, page.Listings[1].ModelFileURL)
}

func TestPrintables_GraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"errors": [{"message": "bad ordering"}]}`)
	}))
	defer server.Close()

	adapter, err := NewPrintables(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = adapter.FetchPage(context.Background(), Query{Term: "x", Sort: SortNewest, Page: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad ordering")
}

func TestPrintables_LicenseFilter(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		queries = append(queries, req.Query)
		_, _ = fmt.Fprint(w, `{"data": {"prints": []}}`)
	}))
	defer server.Close()

	adapter, err := NewPrintables(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = adapter.FetchPage(context.Background(), Query{Term: "knob", Sort: SortNewest, Page: 1})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.NotContains(t, queries[0], "licenseType")

	_, err = NewPrintables(nil, model.SourceConfig{License: "CC0) { id } #"})
	assert.Error(t, err)
}

func TestPrintables_PageFromCache(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = fmt.Fprint(w, `{"data": {"prints": [{"id": "1", "name": "Knob"}]}}`)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, cache.NewMemoryCache(time.Minute, time.Minute))
	adapter, err := NewPrintables(fetcher, model.SourceConfig{BaseURL: server.URL})
	require.NoError(t, err)

	q := Query{Term: "knob", Sort: SortRelevance, Page: 1}
	first, err := adapter.FetchPage(context.Background(), q)
	require.NoError(t, err)
	second, err := adapter.FetchPage(context.Background(), q)
	require.NoError(t, err)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Listings, second.Listings)
	assert.Equal(t, 1, requests)
}

func TestMyMiniFactory_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/search", r.URL.Path)
		assert.Equal(t, "car part", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer mmf", r.Header.Get("Authorization"))

		_, _ = fmt.Fprint(w, `{"total_count": 2, "items": [
			{"id": 9, "name": "Cupholder", "likes": 7, "images": [{"original": {"url": "https://img/9.jpg"}}],
			 "designer": {"username": "d"}},
			{"id": 10, "name": "Dash clip", "url": "https://mmf/10", "images": [{"original": "https://img/10.jpg"}]}
		]}`)
	}))
	defer server.Close()

	adapter, err := NewMyMiniFactory(NewFetcher(testHTTPConfig(), nil, nil), model.SourceConfig{
		BaseURL: server.URL + "/api/v2", Token: "mmf",
	})
	require.NoError(t, err)
	assert.False(t, adapter.Capabilities().HonorsSort)

	page, err := adapter.FetchPage(context.Background(), Query{Term: "car part", Sort: SortNewest, Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.False(t, page.HasMore)

	assert.Equal(t, "https://img/9.jpg", page.Listings[0].ImageURL)
	assert.Equal(t, "https://www.myminifactory.com/object/3d-print-9", page.Listings[0].URL)
	assert.Equal(t, "d", page.Listings[0].Author)
	assert.Equal(t, "https://img/10.jpg", page.Listings[1].ImageURL)
	assert.Equal(t, "https://mmf/10", page.Listings[1].URL)
}

func TestFromConfig(t *testing.T) {
	cfg := model.DefaultConfig().Sources
	cfg.Printables.Enabled = true
	cfg.MyMiniFactory.Enabled = true
	cfg.MyMiniFactory.Token = "mmf"

	registry, errs := FromConfig(cfg, NewFetcher(testHTTPConfig(), nil, nil))

	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrMissingCredential))
	var srcErr *Error
	require.ErrorAs(t, errs[0], &srcErr)
	assert.Equal(t, "thingiverse", srcErr.Source)

	names := make([]string, 0)
	for _, a := range registry.Adapters() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"printables", "myminifactory"}, names)
}

func TestMinPopularity(t *testing.T) {
	floors := MinPopularity(model.DefaultConfig().Sources)
	assert.Equal(t, 10, floors["printables"])
	assert.Equal(t, 0, floors["thingiverse"])
}
