// Package pipeline runs one ingestion: load, crawl, merge, save.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/fixit3d/internal/cache"
	"github.com/ppiankov/fixit3d/internal/catalog"
	"github.com/ppiankov/fixit3d/internal/classify"
	"github.com/ppiankov/fixit3d/internal/crawl"
	"github.com/ppiankov/fixit3d/internal/geometry"
	"github.com/ppiankov/fixit3d/internal/logger"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/ppiankov/fixit3d/internal/source"
	"github.com/ppiankov/fixit3d/internal/store"
	"github.com/ppiankov/fixit3d/internal/throttle"
)

// Pipeline orchestrates a complete run
type Pipeline struct {
	store     store.Store
	crawler   *crawl.Crawler
	adapters  []source.Adapter
	setupErrs []error
	strategy  crawl.Strategy
	log       logger.Logger
	now       func() time.Time
}

// New creates a pipeline from prepared components
func New(st store.Store, crawler *crawl.Crawler, strategy crawl.Strategy, adapters []source.Adapter, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		store:    st,
		crawler:  crawler,
		adapters: adapters,
		strategy: strategy,
		log:      log,
		now:      time.Now,
	}
}

// FromConfig wires fetcher, adapters, classifier and crawler from
// configuration. Sources that cannot be set up are reported in every
// RunResult; the remaining sources still run.
func FromConfig(cfg *model.Config, st store.Store, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.NewNop()
	}
	strategy, err := crawl.ParseStrategy(cfg.Crawl.Strategy)
	if err != nil {
		return nil, err
	}

	plan := crawl.DefaultPlan()
	if cfg.Crawl.PlanFile != "" {
		if plan, err = crawl.LoadPlan(cfg.Crawl.PlanFile); err != nil {
			return nil, err
		}
	}

	rules := classify.DefaultRules()
	var estimator classify.Estimator
	if cfg.Volume.Estimate {
		estimator = classify.NewRandomEstimator(cfg.Volume.Seed, rules.SmallKeywords, rules.LargeKeywords)
	}
	classifier := classify.NewClassifier(rules, estimator)

	// Incremental runs read newest-first pages, which are never cached
	var pageCache cache.Cache
	if cfg.Cache.Enabled && strategy == crawl.StrategyFull {
		pageCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		if removed, err := pageCache.Prune(); err != nil {
			log.Warn("page cache prune failed", logger.Error(err))
		} else if removed > 0 {
			log.Debug("pruned stale cached pages", logger.Int("removed", removed))
		}
	}
	limiter := throttle.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fetcher := source.NewFetcher(cfg.HTTP, limiter, pageCache)

	registry, setupErrs := source.FromConfig(cfg.Sources, fetcher)

	crawler := crawl.NewCrawler(plan, classifier, crawl.Options{
		Strategy:      strategy,
		FullMaxPages:  cfg.Crawl.FullMaxPages,
		RequireImage:  cfg.Crawl.RequireImage,
		MinPopularity: source.MinPopularity(cfg.Sources),
	}, log)
	if cfg.Volume.Measure {
		crawler.WithVolumeMeasurement(fetcher, geometry.NewMeasurer(cfg.Volume.Ceiling))
	}

	p := New(st, crawler, strategy, registry.Adapters(), log)
	p.setupErrs = setupErrs
	return p, nil
}

// RunResult summarizes one run
type RunResult struct {
	RunID        string
	Strategy     crawl.Strategy
	StartedAt    time.Time
	Duration     time.Duration
	Location     string
	Prior        int
	Inserted     int
	Catalog      catalog.Stats
	Sources      []crawl.Stats
	SourceErrors []error
}

// Err joins the per-source errors; nil when every source ran
func (r *RunResult) Err() error {
	return errors.Join(r.SourceErrors...)
}

// Run loads the prior catalog, crawls every adapter, merges and saves.
// The catalog is written once, after the merge; a cancelled run writes nothing.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	started := p.now()
	result := &RunResult{
		RunID:        uuid.NewString(),
		Strategy:     p.strategy,
		StartedAt:    started.UTC(),
		Location:     p.store.Describe(),
		SourceErrors: append([]error(nil), p.setupErrs...),
	}
	log := p.log.With(logger.String("run_id", result.RunID))

	for _, err := range p.setupErrs {
		log.Error("source unavailable", logger.Error(err))
	}

	prior := p.loadPrior(ctx, log)
	result.Prior = prior.Len()
	log.Info("run started",
		logger.String("strategy", string(p.strategy)),
		logger.String("catalog", result.Location),
		logger.Int("prior", result.Prior),
		logger.Int("sources", len(p.adapters)))

	var batch []catalog.Candidate
	for _, adapter := range p.adapters {
		candidates, stats := p.crawler.Crawl(ctx, adapter, prior)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted: %w", err)
		}

		batch = append(batch, candidates...)
		result.Sources = append(result.Sources, stats)
		log.Info("source crawled",
			logger.String("source", stats.Source),
			logger.Int("pages", stats.Pages),
			logger.Int("failed_pages", stats.FailedPages),
			logger.Int("admitted", stats.Admitted),
			logger.Int("rejected", stats.RejectedTotal()),
			logger.Int("early_stops", stats.EarlyStops))
	}

	merged, inserted := catalog.Merge(prior, batch, p.now().UTC())
	if err := p.store.Save(ctx, merged.Entries()); err != nil {
		return nil, fmt.Errorf("save catalog: %w", err)
	}

	result.Inserted = inserted
	result.Catalog = merged.Stats()
	result.Duration = p.now().Sub(started)

	log.Info("run complete",
		logger.Int("inserted", inserted),
		logger.Int("total", result.Catalog.Total),
		logger.Duration("duration", result.Duration))

	return result, nil
}

// loadPrior never fails: unreadable state is an empty catalog
func (p *Pipeline) loadPrior(ctx context.Context, log logger.Logger) *catalog.Catalog {
	entries, err := p.store.Load(ctx)
	if err != nil {
		log.Warn("prior catalog unreadable, starting from empty", logger.Error(err))
		return catalog.New()
	}

	prior, skipped := catalog.FromEntries(entries)
	for _, err := range skipped {
		log.Warn("dropping invalid prior entry", logger.Error(err))
	}
	return prior
}
