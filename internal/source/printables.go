package source

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/fixit3d/internal/model"
)

const (
	printablesName     = "printables"
	printablesModelURL = "https://www.printables.com/model/"
)

// licenseType is a GraphQL enum and is inlined, not passed as a variable
const printablesQuery = `query SearchPrints($query: String!, $limit: Int!, $offset: Int!, $ordering: String!) {
  prints(query: $query, limit: $limit, offset: $offset, ordering: $ordering%s) {
    id
    name
    summary
    slug
    likesCount
    downloadsCount
    license { name }
    images { filePath }
    user { publicUsername }
    stlFiles { url }
  }
}`

var graphQLEnum = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Printables searches the Printables GraphQL API
type Printables struct {
	fetcher  *Fetcher
	endpoint string
	limit    int
	query    string
}

// NewPrintables creates the adapter; no credential is needed. cfg.License,
// when set, restricts results to that Printables license type.
func NewPrintables(fetcher *Fetcher, cfg model.SourceConfig) (*Printables, error) {
	limit := cfg.PerPage
	if limit <= 0 {
		limit = 100
	}

	filter := ""
	if cfg.License != "" {
		if !graphQLEnum.MatchString(cfg.License) {
			return nil, fmt.Errorf("invalid license type %q", cfg.License)
		}
		filter = ", licenseType: " + cfg.License
	}

	return &Printables{
		fetcher:  fetcher,
		endpoint: cfg.BaseURL,
		limit:    limit,
		query:    fmt.Sprintf(printablesQuery, filter),
	}, nil
}

func (p *Printables) Name() string { return printablesName }

func (p *Printables) Capabilities() Capabilities {
	return Capabilities{HonorsSort: true, Pagination: PaginationOffset}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type printablesResponse struct {
	Data struct {
		Prints []printablesPrint `json:"prints"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type printablesPrint struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Summary        string `json:"summary"`
	Slug           string `json:"slug"`
	LikesCount     int    `json:"likesCount"`
	DownloadsCount int    `json:"downloadsCount"`
	License        *struct {
		Name string `json:"name"`
	} `json:"license"`
	Images []struct {
		FilePath string `json:"filePath"`
	} `json:"images"`
	User *struct {
		PublicUsername string `json:"publicUsername"`
	} `json:"user"`
	StlFiles []struct {
		URL string `json:"url"`
	} `json:"stlFiles"`
}

// FetchPage maps the 1-based page onto an offset
func (p *Printables) FetchPage(ctx context.Context, q Query) (Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	body, err := json.Marshal(graphQLRequest{
		Query: p.query,
		Variables: map[string]any{
			"query":    q.Term,
			"limit":    p.limit,
			"offset":   (page - 1) * p.limit,
			"ordering": printablesOrdering(q.Sort),
		},
	})
	if err != nil {
		return Page{}, fmt.Errorf("encode printables query: %w", err)
	}

	resp, err := p.fetcher.FetchWithRetry(ctx, Request{
		Method:    "POST",
		URL:       p.endpoint,
		Body:      body,
		Cacheable: q.Sort != SortNewest,
	})
	if err != nil {
		return Page{}, fmt.Errorf("printables search %q page %d: %w", q.Term, page, err)
	}

	var result printablesResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return Page{}, fmt.Errorf("decode printables response: %w", err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return Page{}, fmt.Errorf("printables graphql: %s", strings.Join(msgs, "; "))
	}

	listings := make([]model.Listing, 0, len(result.Data.Prints))
	for _, item := range result.Data.Prints {
		listings = append(listings, item.listing())
	}

	return Page{
		Listings:  listings,
		HasMore:   len(result.Data.Prints) >= p.limit,
		FromCache: resp.FromCache,
	}, nil
}

func (pr printablesPrint) listing() model.Listing {
	l := model.Listing{
		Source:      printablesName,
		ExternalID:  pr.ID,
		Name:        pr.Name,
		Description: pr.Summary,
		Popularity:  pr.LikesCount,
		Downloads:   pr.DownloadsCount,
		URL:         printablesModelURL + pr.Slug,
	}
	if pr.License != nil {
		l.License = pr.License.Name
	}
	if len(pr.Images) > 0 {
		l.ImageURL = pr.Images[0].FilePath
	}
	if pr.User != nil {
		l.Author = pr.User.PublicUsername
	}
	if len(pr.StlFiles) > 0 {
		l.ModelFileURL = pr.StlFiles[0].URL
	}
	return l
}

func printablesOrdering(s Sort) string {
	if s == SortNewest {
		return "-first_publish"
	}
	return "-likes_count"
}
