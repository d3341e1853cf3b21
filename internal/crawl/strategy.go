package crawl

import (
	"fmt"
	"strings"

	"github.com/ppiankov/fixit3d/internal/source"
)

// Strategy decides sort order, page depth and the stop rule
type Strategy string

const (
	// StrategyIncremental fetches one newest-first page per term and stops
	// at the first already-catalogued listing
	StrategyIncremental Strategy = "incremental"

	// StrategyFull pages relevance-sorted results until empty or the page cap
	StrategyFull Strategy = "full"
)

// DefaultFullMaxPages is the page cap for full crawls
const DefaultFullMaxPages = 5

// ParseStrategy accepts incremental, full and its alias initial
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "incremental":
		return StrategyIncremental, nil
	case "full", "initial":
		return StrategyFull, nil
	default:
		return "", fmt.Errorf("unknown crawl strategy %q (want incremental, full or initial)", s)
	}
}

// Sort returns the requested ordering
func (s Strategy) Sort() source.Sort {
	if s == StrategyFull {
		return source.SortRelevance
	}
	return source.SortNewest
}

// MaxPages returns the per-term page limit
func (s Strategy) MaxPages(fullMax int) int {
	if s != StrategyFull {
		return 1
	}
	if fullMax <= 0 {
		return DefaultFullMaxPages
	}
	return fullMax
}

// StopOnKnown reports whether a known identity ends the term
func (s Strategy) StopOnKnown() bool {
	return s == StrategyIncremental
}
