package species

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	domspecies "github.com/kailas-cloud/birdmatch/internal/domain/species"
)

// fetchBatch bounds the number of HGETALLs pipelined in one round-trip.
const fetchBatch = 256

// store is the consumer interface for the species repository (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads species hashes from a Redis-compatible store.
type Repo struct {
	store      store
	dimensions int
	logger     *zap.Logger
}

// New creates a species repository. dimensions > 0 rejects stored embeddings of any other length.
func New(s store, dimensions int, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, dimensions: dimensions, logger: logger}
}

// AllWithEmbedding scans every species hash and returns those carrying an embedding.
func (r *Repo) AllWithEmbedding(ctx context.Context) ([]domspecies.Record, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan species: %w", err)
	}

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = idFromKey(k)
	}

	records, err := r.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := records[:0]
	for _, rec := range records {
		if !rec.HasEmbedding() {
			continue
		}
		if r.dimensions > 0 && len(rec.Embedding) != r.dimensions {
			return nil, fmt.Errorf("species %s: %w", rec.ID, domain.NewDimensionMismatch(r.dimensions, len(rec.Embedding)))
		}
		out = append(out, rec)
	}
	return out, nil
}

// ByIDs returns records in the requested order, skipping ids with no stored hash.
func (r *Repo) ByIDs(ctx context.Context, ids []string) ([]domspecies.Record, error) {
	return r.fetch(ctx, ids)
}

// Taxonomy reads the taxonomy metadata hash. Missing metadata is not an error.
func (r *Repo) Taxonomy(ctx context.Context) (domspecies.Taxonomy, error) {
	m, err := r.store.HGetAll(ctx, taxonomyKey)
	if err != nil {
		return domspecies.Taxonomy{}, fmt.Errorf("get taxonomy: %w", err)
	}
	return domspecies.Taxonomy{
		Version:   m[fieldTaxVersion],
		UpdatedAt: m[fieldTaxUpdatedAt],
		Source:    m[fieldTaxSource],
	}, nil
}

func (r *Repo) fetch(ctx context.Context, ids []string) ([]domspecies.Record, error) {
	out := make([]domspecies.Record, 0, len(ids))
	for lo := 0; lo < len(ids); lo += fetchBatch {
		batch := ids[lo:min(lo+fetchBatch, len(ids))]

		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = speciesKey(id)
		}

		hashes, err := r.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("get species: %w", err)
		}

		for i, h := range hashes {
			rec, ok, err := toRecord(batch[i], h)
			if err != nil {
				r.logger.Error("Corrupt species record", zap.String("id", batch[i]), zap.Error(err))
				return nil, err
			}
			if ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}
