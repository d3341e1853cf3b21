// Package crawl enumerates search terms per bucket and drives source
// adapters page by page.
package crawl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Category is a labelled list of search terms
type Category struct {
	Name string `yaml:"name"`
	// Brand marks categories named after a brand; the name is then the
	// fallback brand for listings whose title names none
	Brand bool     `yaml:"brand,omitempty"`
	Terms []string `yaml:"terms"`
}

// Group binds categories to the bucket hint passed to the classifier
type Group struct {
	Bucket     model.Bucket `yaml:"bucket"`
	Categories []Category   `yaml:"categories"`
}

// Plan is the ordered crawl enumeration
type Plan struct {
	Groups []Group `yaml:"groups"`
}

// Terms returns the number of (category, term) pairs
func (p Plan) Terms() int {
	n := 0
	for _, g := range p.Groups {
		for _, c := range g.Categories {
			n += len(c.Terms)
		}
	}
	return n
}

// Validate checks buckets and that every category has terms
func (p Plan) Validate() error {
	if len(p.Groups) == 0 {
		return fmt.Errorf("plan has no groups")
	}
	for i, g := range p.Groups {
		if !g.Bucket.Valid() || g.Bucket == model.BucketRejected {
			return fmt.Errorf("group %d: invalid bucket %q", i, g.Bucket)
		}
		for _, c := range g.Categories {
			if c.Name == "" {
				return fmt.Errorf("group %s: category without name", g.Bucket)
			}
			if len(c.Terms) == 0 {
				return fmt.Errorf("category %s: no terms", c.Name)
			}
		}
	}
	return nil
}

// LoadPlan reads a YAML plan file
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return plan, nil
}

func brandTerms(brand string, kinds ...string) Category {
	terms := make([]string, 0, len(kinds))
	for _, k := range kinds {
		terms = append(terms, brand+" "+k)
	}
	return Category{Name: brand, Brand: true, Terms: terms}
}

// DefaultPlan returns the built-in enumeration
func DefaultPlan() Plan {
	spare := make([]Category, 0, 17)
	for _, b := range []string{
		"Bosch", "Dyson", "Ikea", "Samsung", "LG", "Whirlpool", "Philips", "Braun", "Miele",
		"Xiaomi", "Electrolux", "Kenwood", "KitchenAid", "DeLonghi", "Tefal", "Beko",
	} {
		spare = append(spare, brandTerms(b, "spare part", "repair"))
	}
	spare = append(spare, Category{Name: "General Parts", Terms: []string{"spare part", "repair", "replacement part", "fix"}})

	return Plan{Groups: []Group{
		{Bucket: model.BucketSpareParts, Categories: spare},
		{Bucket: model.BucketHobby, Categories: []Category{
			{Name: "Tabletop", Terms: []string{"dnd", "warhammer", "miniature", "terrain"}},
			{Name: "Games", Terms: []string{"minecraft", "pokemon", "zelda", "star wars"}},
			{Name: "Toys", Terms: []string{"toy", "puzzle", "lego"}},
			{Name: "Decor", Terms: []string{"decoration", "vase", "art"}},
		}},
		{Bucket: model.BucketAutomotive, Categories: []Category{
			brandTerms("Toyota", "part", "accessory"),
			brandTerms("BMW", "part", "accessory"),
			brandTerms("Mercedes", "part", "repair"),
			brandTerms("Audi", "part", "repair"),
			{Name: "Volkswagen", Brand: true, Terms: []string{"VW part", "VW repair"}},
			brandTerms("Tesla", "part", "accessory"),
			{Name: "Accessories", Terms: []string{"car holder", "cupholder", "key fob"}},
		}},
		{Bucket: model.BucketHomeImprovement, Categories: []Category{
			brandTerms("Makita", "spare part", "repair"),
			brandTerms("Karcher", "spare part", "repair"),
			brandTerms("DeWalt", "part", "adapter"),
			{Name: "Garden", Terms: []string{"garden tool", "hose connector"}},
			{Name: "Kitchen", Terms: []string{"organizer", "hook", "shelf"}},
		}},
		{Bucket: model.BucketGeneral, Categories: []Category{
			{Name: "Unsorted", Terms: []string{"broken", "replacement", "knob"}},
		}},
	}}
}
