package source

import (
	"fmt"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Error is a source that could not be set up or crawled
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry holds the enabled adapters in crawl order
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{adapters: make([]Adapter, 0)}
}

// Register appends an adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// Adapters returns the registered adapters in registration order
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// FromConfig registers every enabled source. Sources that cannot be built
// (e.g. a missing token) are reported individually; the rest are usable.
func FromConfig(cfg model.SourcesConfig, fetcher *Fetcher) (*Registry, []error) {
	registry := NewRegistry()
	var errs []error

	if cfg.Thingiverse.Enabled {
		if adapter, err := NewThingiverse(fetcher, cfg.Thingiverse); err != nil {
			errs = append(errs, &Error{Source: thingiverseName, Err: err})
		} else {
			registry.Register(adapter)
		}
	}

	if cfg.Printables.Enabled {
		if adapter, err := NewPrintables(fetcher, cfg.Printables); err != nil {
			errs = append(errs, &Error{Source: printablesName, Err: err})
		} else {
			registry.Register(adapter)
		}
	}

	if cfg.MyMiniFactory.Enabled {
		if adapter, err := NewMyMiniFactory(fetcher, cfg.MyMiniFactory); err != nil {
			errs = append(errs, &Error{Source: myMiniFactoryName, Err: err})
		} else {
			registry.Register(adapter)
		}
	}

	return registry, errs
}

// MinPopularity returns the configured popularity floor per source name
func MinPopularity(cfg model.SourcesConfig) map[string]int {
	return map[string]int{
		thingiverseName:   cfg.Thingiverse.MinPopularity,
		printablesName:    cfg.Printables.MinPopularity,
		myMiniFactoryName: cfg.MyMiniFactory.MinPopularity,
	}
}
