package crawl

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/ppiankov/fixit3d/internal/catalog"
	"github.com/ppiankov/fixit3d/internal/classify"
	"github.com/ppiankov/fixit3d/internal/logger"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/ppiankov/fixit3d/internal/source"
	"github.com/ppiankov/fixit3d/internal/util"
)

// Downloader fetches model files
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Measurer computes a mesh volume in cm³
type Measurer interface {
	Measure(r io.ReadSeeker) (float64, error)
}

// Options tune a crawl
type Options struct {
	Strategy     Strategy
	FullMaxPages int
	// RequireImage skips listings without a preview image
	RequireImage bool
	// MinPopularity is a per-source popularity floor
	MinPopularity map[string]int
}

// Stats summarizes one crawl of one source
type Stats struct {
	Source           string
	Terms            int
	Pages            int
	CachedPages      int
	FailedPages      int
	Listings         int
	Known            int
	Duplicates       int
	SkippedNoImage   int
	SkippedUnpopular int
	Admitted         int
	Rejected         map[model.RejectReason]int
	EarlyStops       int
	Measured         int
	Unmeasurable     int
}

// RejectedTotal sums rejections over all reasons
func (s Stats) RejectedTotal() int {
	n := 0
	for _, v := range s.Rejected {
		n += v
	}
	return n
}

// Crawler walks a plan against one adapter at a time, strictly sequentially
type Crawler struct {
	plan       Plan
	classifier *classify.Classifier
	opts       Options
	downloader Downloader
	measurer   Measurer
	log        logger.Logger
}

// NewCrawler creates a crawler; log may be nil
func NewCrawler(plan Plan, classifier *classify.Classifier, opts Options, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{plan: plan, classifier: classifier, opts: opts, log: log}
}

// WithVolumeMeasurement enables mesh downloads for admitted listings that
// expose a model file
func (c *Crawler) WithVolumeMeasurement(d Downloader, m Measurer) *Crawler {
	c.downloader = d
	c.measurer = m
	return c
}

// termState is carried across the terms of one Crawl call
type termState struct {
	prior       *catalog.Catalog
	collected   map[model.Identity]bool
	candidates  []catalog.Candidate
	stopOnKnown bool
	stats       *Stats
}

// Crawl fetches every (category, term) pair of the plan from adapter and
// returns the admitted candidates in encounter order. prior may be nil.
// Page failures abandon the term only; cancellation ends the crawl.
func (c *Crawler) Crawl(ctx context.Context, adapter source.Adapter, prior *catalog.Catalog) ([]catalog.Candidate, Stats) {
	if prior == nil {
		prior = catalog.New()
	}

	stats := Stats{Source: adapter.Name(), Rejected: make(map[model.RejectReason]int)}
	st := &termState{
		prior:       prior,
		collected:   make(map[model.Identity]bool),
		stopOnKnown: c.opts.Strategy.StopOnKnown(),
		stats:       &stats,
	}

	log := c.log.With(logger.String("source", adapter.Name()), logger.String("strategy", string(c.opts.Strategy)))

	if st.stopOnKnown && !adapter.Capabilities().HonorsSort {
		st.stopOnKnown = false
		log.Warn("source does not honor newest-first ordering; incremental stop rule disabled")
	}

	for _, group := range c.plan.Groups {
		for _, category := range group.Categories {
			for _, term := range category.Terms {
				if ctx.Err() != nil {
					log.Warn("crawl cancelled", logger.Error(ctx.Err()))
					return st.candidates, stats
				}
				stats.Terms++
				c.crawlTerm(ctx, log, adapter, group.Bucket, category, term, st)
			}
		}
	}

	return st.candidates, stats
}

func (c *Crawler) crawlTerm(ctx context.Context, log logger.Logger, adapter source.Adapter, bucket model.Bucket, category Category, term string, st *termState) {
	maxPages := c.opts.Strategy.MaxPages(c.opts.FullMaxPages)
	sort := c.opts.Strategy.Sort()

	for page := 1; page <= maxPages; page++ {
		result, err := adapter.FetchPage(ctx, source.Query{Term: term, Sort: sort, Page: page})
		st.stats.Pages++
		if err != nil {
			st.stats.FailedPages++
			log.Warn("page failed, skipping term",
				logger.String("term", term), logger.Int("page", page), logger.Error(err))
			return
		}
		if result.FromCache {
			st.stats.CachedPages++
		}
		if len(result.Listings) == 0 {
			return
		}

		for _, listing := range result.Listings {
			st.stats.Listings++
			id := listing.Identity()

			if st.prior.Has(id) {
				if st.stopOnKnown {
					st.stats.EarlyStops++
					log.Debug("reached known listing, stopping term",
						logger.String("term", term), logger.String("id", id.String()))
					return
				}
				st.stats.Known++
				continue
			}
			if st.collected[id] {
				st.stats.Duplicates++
				continue
			}

			c.evaluate(ctx, log, listing, bucket, category, st)
		}

		if !result.HasMore {
			return
		}
	}
}

func (c *Crawler) evaluate(ctx context.Context, log logger.Logger, listing model.Listing, bucket model.Bucket, category Category, st *termState) {
	if c.opts.RequireImage && listing.ImageURL == "" {
		st.stats.SkippedNoImage++
		return
	}
	if listing.Popularity < c.opts.MinPopularity[listing.Source] {
		st.stats.SkippedUnpopular++
		return
	}

	listing.Category = category.Name
	listing.Description = util.HTMLToText(listing.Description)

	in := classify.Input{
		Name:        listing.Name,
		Description: listing.Description,
		Bucket:      bucket,
	}
	if category.Brand {
		in.FallbackBrand = category.Name
	}

	result := c.classifier.Decide(in)
	if !result.Admitted() {
		st.stats.Rejected[result.Reason]++
		return
	}

	var measured *float64
	if volume, ok := c.measure(ctx, log, listing, st.stats); ok {
		measured = &volume
	}
	c.classifier.AssignVolume(&result, listing.Name, measured)

	st.collected[listing.Identity()] = true
	st.candidates = append(st.candidates, catalog.Candidate{Listing: listing, Result: result})
	st.stats.Admitted++
}

func (c *Crawler) measure(ctx context.Context, log logger.Logger, listing model.Listing, stats *Stats) (float64, bool) {
	if c.downloader == nil || c.measurer == nil || listing.ModelFileURL == "" {
		return 0, false
	}

	data, err := c.downloader.Download(ctx, listing.ModelFileURL)
	if err == nil {
		var volume float64
		volume, err = c.measurer.Measure(bytes.NewReader(data))
		if err == nil {
			stats.Measured++
			return volume, true
		}
	}

	stats.Unmeasurable++
	if !errors.Is(err, context.Canceled) {
		log.Debug("volume not measurable", logger.String("id", listing.Identity().String()), logger.Error(err))
	}
	return 0, false
}
