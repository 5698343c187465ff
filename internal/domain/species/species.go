// Package species defines the searchable species record.
package species

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// Record is one species in the corpus.
type Record struct {
	ID             string
	CommonName     string
	ScientificName string
	Description    string
	ThumbnailURL   string
	Embedding      []float32
}

// HasEmbedding reports whether the record can take part in ranking.
func (r *Record) HasEmbedding() bool { return len(r.Embedding) > 0 }

// Validate checks the required display fields.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: species id is required", domain.ErrCorruptRecord)
	}
	if strings.TrimSpace(r.CommonName) == "" {
		return fmt.Errorf("%w: species %s: common name is required", domain.ErrCorruptRecord, r.ID)
	}
	if strings.TrimSpace(r.ScientificName) == "" {
		return fmt.Errorf("%w: species %s: scientific name is required", domain.ErrCorruptRecord, r.ID)
	}
	return nil
}

// WithoutEmbedding returns a copy stripped of the vector, safe to hand to callers.
func (r Record) WithoutEmbedding() Record {
	r.Embedding = nil
	return r
}

// Taxonomy describes the loaded species list.
type Taxonomy struct {
	Version   string
	UpdatedAt string
	Source    string
}

// Taxonomy defaults used when the store carries no metadata.
const (
	UnknownTaxonomyVersion = "unknown"
	DefaultTaxonomySource  = "eBird"
)

// WithDefaults fills missing version and source.
func (t Taxonomy) WithDefaults() Taxonomy {
	if t.Version == "" {
		t.Version = UnknownTaxonomyVersion
	}
	if t.Source == "" {
		t.Source = DefaultTaxonomySource
	}
	return t
}
