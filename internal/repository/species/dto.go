package species

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	domspecies "github.com/kailas-cloud/birdmatch/internal/domain/species"
	"github.com/kailas-cloud/birdmatch/internal/domain/vector"
)

// Hash field names of a stored species.
const (
	fieldCommonName     = "common_name"
	fieldScientificName = "scientific_name"
	fieldDescription    = "description"
	fieldThumbnailURL   = "thumbnail_url"
	fieldEmbedding      = "embedding"
)

// Taxonomy hash field names.
const (
	fieldTaxVersion   = "version"
	fieldTaxUpdatedAt = "updated_at"
	fieldTaxSource    = "source"
)

var (
	keyPrefix   = domain.KeyPrefix + "species:"
	taxonomyKey = domain.KeyPrefix + "taxonomy"
)

func speciesKey(id string) string { return keyPrefix + id }

func idFromKey(key string) string { return strings.TrimPrefix(key, keyPrefix) }

// toRecord maps a raw hash into a typed record. An empty hash means the key does not exist.
func toRecord(id string, fields map[string]string) (domspecies.Record, bool, error) {
	if len(fields) == 0 {
		return domspecies.Record{}, false, nil
	}

	rec := domspecies.Record{
		ID:             id,
		CommonName:     fields[fieldCommonName],
		ScientificName: fields[fieldScientificName],
		Description:    fields[fieldDescription],
		ThumbnailURL:   fields[fieldThumbnailURL],
	}
	if err := rec.Validate(); err != nil {
		return domspecies.Record{}, false, err
	}

	if raw, ok := fields[fieldEmbedding]; ok && raw != "" {
		emb, err := vector.FromBytes([]byte(raw))
		if err != nil {
			return domspecies.Record{}, false, fmt.Errorf("%w: species %s: %w", domain.ErrCorruptRecord, id, err)
		}
		rec.Embedding = emb
	}
	return rec, true, nil
}
