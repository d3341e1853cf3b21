package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/fixit3d/internal/catalog"
	"github.com/ppiankov/fixit3d/internal/pipeline"
	"github.com/ppiankov/fixit3d/internal/store"
)

var statsTop int

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the persisted catalog",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog counts per bucket and source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		ctx := context.Background()
		st, err := store.New(ctx, cfg.Catalog)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = st.Close() }()

		entries, err := st.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		cat, skipped := catalog.FromEntries(entries)
		for _, e := range skipped {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", e)
		}

		printStats(cat, st.Describe(), statsTop)
		return nil
	},
}

func printStats(cat *catalog.Catalog, location string, top int) {
	stats := cat.Stats()

	fmt.Printf("Catalog: %s\n", location)
	fmt.Printf("Entries: %d (%d with measured volume)\n\n", stats.Total, stats.Measured)
	fmt.Printf("By bucket:\n  %s\n\n", pipeline.FormatBuckets(stats.ByBucket))

	sources := make([]string, 0, len(stats.BySource))
	for s := range stats.BySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	fmt.Println("By source:")
	for _, s := range sources {
		fmt.Printf("  %-14s %d\n", s, stats.BySource[s])
	}

	if top <= 0 {
		return
	}

	fmt.Printf("\nTop %d by popularity:\n", top)
	for i, e := range cat.Entries() {
		if i >= top {
			break
		}
		brand := e.BrandName()
		if brand == "" {
			brand = "-"
		}
		fmt.Printf("  %5d  %-18s %-12s %s\n", e.Popularity, e.ID, brand, e.Name)
	}
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogStatsCmd)

	catalogStatsCmd.Flags().IntVar(&statsTop, "top", 10, "number of most popular entries to list")
}
