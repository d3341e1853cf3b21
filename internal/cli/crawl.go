package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/fixit3d/internal/logger"
	"github.com/ppiankov/fixit3d/internal/model"
	"github.com/ppiankov/fixit3d/internal/pipeline"
	"github.com/ppiankov/fixit3d/internal/store"
)

var (
	crawlFull    bool
	crawlInitial bool
	crawlToken   string
	crawlPlan    string
	crawlNoCache bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch new listings and merge them into the catalog",
	Long: `Crawl runs every (category, term) pair of the crawl plan against each
enabled source, classifies the listings and merges admitted ones into the
catalog.

Strategies:
  incremental (default)  newest first, one page per term, stops at the first
                         listing already in the catalog
  --full / --initial     relevance sorted, up to crawl.full_max_pages pages

Example:
  fixit3d crawl
  fixit3d crawl --initial --token $THINGIVERSE_TOKEN
  FIXIT3D_SOURCES_PRINTABLES_ENABLED=true fixit3d crawl --full`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().BoolVar(&crawlFull, "full", false, "full crawl (relevance sort, several pages per term)")
	crawlCmd.Flags().BoolVar(&crawlInitial, "initial", false, "alias for --full")
	crawlCmd.Flags().StringVar(&crawlToken, "token", "", "Thingiverse API token (overrides THINGIVERSE_TOKEN)")
	crawlCmd.Flags().StringVar(&crawlPlan, "plan", "", "YAML crawl plan (default: built-in plan)")
	crawlCmd.Flags().BoolVar(&crawlNoCache, "no-cache", false, "disable the page cache")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	if crawlFull || crawlInitial {
		cfg.Crawl.Strategy = "full"
	}
	if crawlToken != "" {
		cfg.Sources.Thingiverse.Token = crawlToken
	}
	if crawlPlan != "" {
		cfg.Crawl.PlanFile = crawlPlan
	}
	if crawlNoCache {
		cfg.Cache.Enabled = false
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		fmt.Fprintf(os.Stderr, "Strategy: %s\n", cfg.Crawl.Strategy)
		fmt.Fprintf(os.Stderr, "Catalog: %s (%s)\n", cfg.Catalog.Path, cfg.Catalog.Driver)
		fmt.Fprintf(os.Stderr, "Cache: %v\n\n", cfg.Cache.Enabled)
	}

	result, err := runOnce(ctx, cfg, log)
	if err != nil {
		return err
	}

	pipeline.RenderSummary(os.Stderr, result)

	// Catalog is saved; per-source failures still fail the command
	return result.Err()
}

// runOnce opens the store and runs one pipeline pass
func runOnce(ctx context.Context, cfg *model.Config, log logger.Logger) (*pipeline.RunResult, error) {
	st, err := store.New(ctx, cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	p, err := pipeline.FromConfig(cfg, st, log)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}
