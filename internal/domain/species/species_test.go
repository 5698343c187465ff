package species

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid", Record{ID: "blujay", CommonName: "Blue Jay", ScientificName: "Cyanocitta cristata"}, false},
		{"missing id", Record{CommonName: "Blue Jay", ScientificName: "Cyanocitta cristata"}, true},
		{"missing common", Record{ID: "blujay", ScientificName: "Cyanocitta cristata"}, true},
		{"blank scientific", Record{ID: "blujay", CommonName: "Blue Jay", ScientificName: "  "}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			if tc.wantErr {
				if !errors.Is(err, domain.ErrCorruptRecord) {
					t.Errorf("expected ErrCorruptRecord, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRecord_HasEmbedding(t *testing.T) {
	r := Record{ID: "a"}
	if r.HasEmbedding() {
		t.Error("HasEmbedding() = true for nil embedding")
	}
	r.Embedding = []float32{0.1}
	if !r.HasEmbedding() {
		t.Error("HasEmbedding() = false")
	}
}

func TestRecord_WithoutEmbedding(t *testing.T) {
	r := Record{ID: "a", Embedding: []float32{1, 2}}
	stripped := r.WithoutEmbedding()
	if stripped.Embedding != nil {
		t.Error("embedding not stripped")
	}
	if len(r.Embedding) != 2 {
		t.Error("original record mutated")
	}
}

func TestTaxonomy_WithDefaults(t *testing.T) {
	got := Taxonomy{}.WithDefaults()
	if got.Version != UnknownTaxonomyVersion || got.Source != DefaultTaxonomySource || got.UpdatedAt != "" {
		t.Errorf("unexpected defaults: %+v", got)
	}

	set := Taxonomy{Version: "2024", UpdatedAt: "2024-10-01", Source: "Clements"}.WithDefaults()
	if set.Version != "2024" || set.Source != "Clements" {
		t.Errorf("explicit values overwritten: %+v", set)
	}
}
