// Package classify decides whether a listing belongs in the catalog and
// assigns its bucket, brand and volume.
package classify

import (
	"strings"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Input is the text and crawl context of one listing
type Input struct {
	Name        string
	Description string

	// Bucket is the hint from the crawl plan group
	Bucket model.Bucket

	// FallbackBrand is the crawl category when the category names a brand
	FallbackBrand string

	// MeasuredVolume is a real measurement in cm³, if one exists
	MeasuredVolume *float64
}

// Classifier applies the admission rules in strict order
type Classifier struct {
	jokes      *keywordSet
	functional *keywordSet
	appliances *keywordSet
	brands     *keywordSet
	brandNames []string
	estimator  Estimator
}

// NewClassifier builds a classifier from rules. estimator may be nil, in which
// case unmeasured volumes stay null.
func NewClassifier(rules Rules, estimator Estimator) *Classifier {
	return &Classifier{
		jokes:      newKeywordSet(rules.JokeKeywords),
		functional: newKeywordSet(rules.FunctionalKeywords),
		appliances: newKeywordSet(rules.ApplianceBrands),
		brands:     newKeywordSet(rules.Brands),
		brandNames: nonEmpty(rules.Brands),
		estimator:  estimator,
	}
}

// Classify returns the verdict for one listing, with its volume when admitted
func (c *Classifier) Classify(in Input) model.Result {
	result := c.Decide(in)
	if result.Admitted() {
		c.AssignVolume(&result, in.Name, in.MeasuredVolume)
	}
	return result
}

// Decide applies the admission rules without touching the volume
func (c *Classifier) Decide(in Input) model.Result {
	text := strings.ToLower(in.Name + " " + in.Description)

	// 1. Joke / noise filter, regardless of bucket
	if c.jokes.Contains(text) {
		return model.Reject(model.ReasonJoke)
	}

	bucket := in.Bucket
	brand := c.ExtractBrand(in.Name, in.FallbackBrand)

	switch bucket {
	case model.BucketSpareParts:
		// 2. Brand name without any mechanical vocabulary is a logo item
		if c.appliances.Contains(text) && !c.functional.Contains(text) {
			return model.Reject(model.ReasonBrandWithoutFunction)
		}
	case model.BucketGeneral:
		// 3. Unscoped queries need a brand to be filed at all
		if brand == "" {
			return model.Reject(model.ReasonAmbiguous)
		}
		bucket = model.BucketSpareParts
	}

	return model.Result{
		Verdict: model.VerdictAdmit,
		Bucket:  bucket,
		Brand:   brand,
	}
}

// AssignVolume sets a measured volume, or draws an estimate only when no
// measurement exists.
func (c *Classifier) AssignVolume(result *model.Result, name string, measured *float64) {
	switch {
	case measured != nil:
		v := *measured
		result.Volume = &v
		result.VolumeEstimated = false
	case c.estimator != nil:
		v := c.estimator.Estimate(name)
		result.Volume = &v
		result.VolumeEstimated = true
	}
}

// ExtractBrand returns the first registry brand found in name, in registry
// declaration order, falling back to the category brand.
func (c *Classifier) ExtractBrand(name, fallback string) string {
	if idx := c.brands.First(strings.ToLower(name)); idx >= 0 {
		return c.brandNames[idx]
	}
	return fallback
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
