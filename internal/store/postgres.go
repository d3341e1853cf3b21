package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/fixit3d/internal/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS catalog_entries (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	brand            TEXT,
	bucket           TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL,
	external_id      TEXT NOT NULL,
	source_url       TEXT NOT NULL DEFAULT '',
	image            TEXT NOT NULL DEFAULT '',
	license          TEXT NOT NULL DEFAULT '',
	author           TEXT NOT NULL DEFAULT '',
	popularity       INTEGER NOT NULL DEFAULT 0,
	downloads        INTEGER NOT NULL DEFAULT 0,
	model_url        TEXT NOT NULL DEFAULT '',
	volume_cm3       DOUBLE PRECISION,
	volume_estimated BOOLEAN NOT NULL DEFAULT FALSE,
	indexed_at       TIMESTAMPTZ NOT NULL
)`

const selectEntriesSQL = `
SELECT id, name, description, brand, bucket, category, source, external_id, source_url,
       image, license, author, popularity, downloads, model_url, volume_cm3,
       volume_estimated, indexed_at
FROM catalog_entries
ORDER BY popularity DESC, id`

// Existing rows are never updated: the first write of an identity wins.
const insertEntrySQL = `
INSERT INTO catalog_entries (
	id, name, description, brand, bucket, category, source, external_id, source_url,
	image, license, author, popularity, downloads, model_url, volume_cm3,
	volume_estimated, indexed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (id) DO NOTHING`

// PostgresStore keeps the catalog in a catalog_entries table
type PostgresStore struct {
	pool *pgxpool.Pool
	dsn  string
}

// NewPostgresStore connects and ensures the schema exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create catalog table: %w", err)
	}
	return &PostgresStore{pool: pool, dsn: dsn}, nil
}

// Load reads every entry
func (s *PostgresStore) Load(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		var bucket string
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.Brand, &bucket, &e.Category, &e.Source, &e.ExternalID, &e.SourceURL,
			&e.Image, &e.License, &e.Author, &e.Popularity, &e.Downloads, &e.ModelURL, &e.Volume,
			&e.VolumeEstimated, &e.IndexedAt,
		); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		e.Bucket = model.Bucket(bucket)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return entries, nil
}

// Save inserts entries that are not yet stored, in one transaction
func (s *PostgresStore) Save(ctx context.Context, entries []model.CatalogEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(insertEntrySQL,
			e.ID, e.Name, e.Description, e.Brand, string(e.Bucket), e.Category, e.Source, e.ExternalID, e.SourceURL,
			e.Image, e.License, e.Author, e.Popularity, e.Downloads, e.ModelURL, e.Volume,
			e.VolumeEstimated, e.IndexedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert catalog entries: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Describe returns a redacted location
func (s *PostgresStore) Describe() string {
	cfg, err := pgxpool.ParseConfig(s.dsn)
	if err != nil {
		return "postgres"
	}
	return fmt.Sprintf("postgres://%s:%d/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database)
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
