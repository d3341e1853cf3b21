package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/fixit3d/internal/model"
)

// bucketOrder is the display order of catalog buckets
var bucketOrder = []model.Bucket{
	model.BucketSpareParts,
	model.BucketHobby,
	model.BucketAutomotive,
	model.BucketHomeImprovement,
}

// RenderSummary prints a human-readable run summary
func RenderSummary(w io.Writer, r *RunResult) {
	_, _ = fmt.Fprintf(w, "\n=== fixit3d run %s (%s) ===\n", r.RunID, r.Strategy)

	for _, s := range r.Sources {
		_, _ = fmt.Fprintf(w, "%-14s %d terms, %d pages (%d cached, %d failed), %d listings\n",
			s.Source+":", s.Terms, s.Pages, s.CachedPages, s.FailedPages, s.Listings)
		_, _ = fmt.Fprintf(w, "%-14s admitted %d, rejected %d%s, early stops %d\n",
			"", s.Admitted, s.RejectedTotal(), formatReasons(s.Rejected), s.EarlyStops)
		if s.SkippedNoImage+s.SkippedUnpopular+s.Duplicates > 0 {
			_, _ = fmt.Fprintf(w, "%-14s skipped %d without image, %d below popularity floor, %d repeated\n",
				"", s.SkippedNoImage, s.SkippedUnpopular, s.Duplicates)
		}
		if s.Measured+s.Unmeasurable > 0 {
			_, _ = fmt.Fprintf(w, "%-14s volumes measured %d, unmeasurable %d\n", "", s.Measured, s.Unmeasurable)
		}
	}

	_, _ = fmt.Fprintf(w, "\nCatalog: %d prior + %d new = %d entries (%s)\n",
		r.Prior, r.Inserted, r.Catalog.Total, r.Location)
	_, _ = fmt.Fprintf(w, "  %s\n", FormatBuckets(r.Catalog.ByBucket))

	if len(r.SourceErrors) > 0 {
		_, _ = fmt.Fprintf(w, "\nErrors:\n")
		for _, err := range r.SourceErrors {
			_, _ = fmt.Fprintf(w, "  ✗ %v\n", err)
		}
	}

	_, _ = fmt.Fprintf(w, "\nFinished in %s\n", r.Duration.Round(time.Millisecond))
}

// FormatBuckets renders per-bucket counts in taxonomy order
func FormatBuckets(counts map[model.Bucket]int) string {
	parts := make([]string, 0, len(bucketOrder))
	for _, b := range bucketOrder {
		parts = append(parts, fmt.Sprintf("%s: %d", b, counts[b]))
	}
	return strings.Join(parts, "  ")
}

func formatReasons(reasons map[model.RejectReason]int) string {
	if len(reasons) == 0 {
		return ""
	}
	keys := make([]string, 0, len(reasons))
	for r := range reasons {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, reasons[model.RejectReason(k)]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
