package search

import (
	"context"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/audit"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
)

// Corpus exposes the records eligible for ranking.
type Corpus interface {
	// AllWithEmbedding returns every record carrying an embedding, in no particular order.
	AllWithEmbedding(ctx context.Context) ([]species.Record, error)
}

// RecordStore is the read side of the species store.
type RecordStore interface {
	Corpus
	// ByIDs returns records in the requested order, skipping unknown ids.
	ByIDs(ctx context.Context, ids []string) ([]species.Record, error)
}

// TaxonomyReader is implemented by stores that track taxonomy metadata.
type TaxonomyReader interface {
	Taxonomy(ctx context.Context) (species.Taxonomy, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// AuditSink persists audit entries. Failures are never surfaced to callers.
type AuditSink interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// FieldMarkExtractor derives display phrases from a description.
type FieldMarkExtractor interface {
	Extract(description string) []string
}
