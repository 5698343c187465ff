package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/birdmatch/internal/db"
	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
)

const (
	selectWithEmbedding = `
		SELECT s.id, s.common_name, s.scientific_name, s.embedding
		FROM species s
		WHERE s.embedding IS NOT NULL`

	selectByIDs = `
		SELECT s.id, s.common_name, s.scientific_name, COALESCE(s.description, ''), i.url
		FROM species s
		LEFT JOIN species_images i ON i.species_id = s.id AND i.is_primary = TRUE
		WHERE s.id = ANY($1)`

	selectTaxonomy = `
		SELECT version, COALESCE(updated_at, ''), COALESCE(source, '')
		FROM taxonomy_metadata
		WHERE id = 1`
)

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store reads species records from PostgreSQL with pgvector embeddings.
type Store struct {
	pool       pool
	dimensions int
}

// NewStore wraps a pool. dimensions > 0 rejects stored embeddings of any other length.
func NewStore(p pool, dimensions int) *Store {
	return &Store{pool: p, dimensions: dimensions}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// WaitForReady pings until the database answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.pool.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// AllWithEmbedding returns every species with a stored embedding.
// Display fields beyond the names are left empty; hydration goes through ByIDs.
func (s *Store) AllWithEmbedding(ctx context.Context) ([]species.Record, error) {
	rows, err := s.pool.Query(ctx, selectWithEmbedding)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var out []species.Record
	for rows.Next() {
		var (
			rec species.Record
			emb pgvector.Vector
		)
		if err := rows.Scan(&rec.ID, &rec.CommonName, &rec.ScientificName, &emb); err != nil {
			return nil, fmt.Errorf("%w: scan species: %w", domain.ErrCorruptRecord, err)
		}
		rec.Embedding = emb.Slice()
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if s.dimensions > 0 && len(rec.Embedding) != s.dimensions {
			return nil, fmt.Errorf("species %s: %w", rec.ID, domain.NewDimensionMismatch(s.dimensions, len(rec.Embedding)))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// ByIDs returns display records in the requested order. Unknown ids are skipped.
func (s *Store) ByIDs(ctx context.Context, ids []string) ([]species.Record, error) {
	if len(ids) == 0 {
		return []species.Record{}, nil
	}

	rows, err := s.pool.Query(ctx, selectByIDs, ids)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	byID := make(map[string]species.Record, len(ids))
	for rows.Next() {
		var (
			rec   species.Record
			thumb *string
		)
		if err := rows.Scan(&rec.ID, &rec.CommonName, &rec.ScientificName, &rec.Description, &thumb); err != nil {
			return nil, fmt.Errorf("%w: scan species: %w", domain.ErrCorruptRecord, err)
		}
		if thumb != nil {
			rec.ThumbnailURL = *thumb
		}
		// first primary image wins when several are flagged
		if _, seen := byID[rec.ID]; !seen {
			byID[rec.ID] = rec
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	out := make([]species.Record, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

// Taxonomy reads the single taxonomy metadata row. A missing row yields zero values.
func (s *Store) Taxonomy(ctx context.Context) (species.Taxonomy, error) {
	var t species.Taxonomy
	err := s.pool.QueryRow(ctx, selectTaxonomy).Scan(&t.Version, &t.UpdatedAt, &t.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return species.Taxonomy{}, nil
	}
	if err != nil {
		return species.Taxonomy{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	return t, nil
}
