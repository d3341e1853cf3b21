// Package store persists catalog snapshots.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/fixit3d/internal/model"
)

// Store loads and saves full catalog snapshots
type Store interface {
	// Load returns the persisted snapshot; an absent catalog is empty, not an error
	Load(ctx context.Context) ([]model.CatalogEntry, error)

	// Save replaces the persisted snapshot
	Save(ctx context.Context, entries []model.CatalogEntry) error

	// Describe returns a human-readable location for logs
	Describe() string

	Close() error
}

// New creates the store selected by configuration
func New(ctx context.Context, cfg model.CatalogConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "json":
		if cfg.Path == "" {
			return nil, fmt.Errorf("catalog path is required for the json driver")
		}
		return NewJSONStore(cfg.Path), nil
	case "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("catalog dsn is required for the postgres driver")
		}
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown catalog driver: %s (supported: json, postgres)", cfg.Driver)
	}
}
