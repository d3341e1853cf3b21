package classify

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Size is the magnitude bucket used for volume estimation
type Size int

const (
	SizeMedium Size = iota
	SizeSmall
	SizeLarge
)

func (s Size) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeLarge:
		return "large"
	default:
		return "medium"
	}
}

// Range returns the placeholder range in cm³ for the size bucket
func (s Size) Range() (lo, hi float64) {
	switch s {
	case SizeSmall:
		return 2, 10
	case SizeLarge:
		return 80, 250
	default:
		return 15, 60
	}
}

// Estimator produces a placeholder volume when no measurement exists.
// Values are estimates and are always flagged as such in results.
type Estimator interface {
	Estimate(name string) float64
}

// RandomEstimator samples uniformly within the size bucket of a name
type RandomEstimator struct {
	small *keywordSet
	large *keywordSet
	rng   *rand.Rand
}

// NewRandomEstimator creates an estimator; seed 0 uses the current time
func NewRandomEstimator(seed int64, smallKeywords, largeKeywords []string) *RandomEstimator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomEstimator{
		small: newKeywordSet(smallKeywords),
		large: newKeywordSet(largeKeywords),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// SizeOf buckets a name by its size keywords; small wins over large
func (e *RandomEstimator) SizeOf(name string) Size {
	lowered := strings.ToLower(name)
	switch {
	case e.small.Contains(lowered):
		return SizeSmall
	case e.large.Contains(lowered):
		return SizeLarge
	default:
		return SizeMedium
	}
}

// Estimate returns a value in the size bucket range, rounded to 0.01
func (e *RandomEstimator) Estimate(name string) float64 {
	lo, hi := e.SizeOf(name).Range()
	v := lo + e.rng.Float64()*(hi-lo)
	return math.Round(v*100) / 100
}
