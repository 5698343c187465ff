package chi

import (
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
)

type searchRequest struct {
	Query *string `json:"query"`
}

// SearchResultItem is one ranked species in a search response.
type SearchResultItem struct {
	ID             string   `json:"id"`
	CommonName     string   `json:"commonName"`
	ScientificName string   `json:"scientificName"`
	Score          float64  `json:"score"`
	ThumbnailURL   *string  `json:"thumbnailUrl"`
	FieldMarks     []string `json:"fieldMarks"`
}

// SearchResponse is the search payload shared by the HTTP API and the CLI.
type SearchResponse struct {
	Results    []SearchResultItem `json:"results"`
	TotalCount int                `json:"totalCount"`
	QueryID    string             `json:"queryId"`
}

type speciesResponse struct {
	ID             string  `json:"id"`
	CommonName     string  `json:"commonName"`
	ScientificName string  `json:"scientificName"`
	Description    string  `json:"description,omitempty"`
	ThumbnailURL   *string `json:"thumbnailUrl"`
}

type taxonomyResponse struct {
	Version     string  `json:"version"`
	LastUpdated *string `json:"lastUpdated"`
	Source      string  `json:"source"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewSearchResponse maps an outcome to its wire shape. Missing thumbnails are null
// and field marks are never null.
func NewSearchResponse(o result.Outcome) SearchResponse {
	items := make([]SearchResultItem, len(o.Results))
	for i, it := range o.Results {
		marks := it.FieldMarks
		if marks == nil {
			marks = []string{}
		}
		items[i] = SearchResultItem{
			ID:             it.ID,
			CommonName:     it.CommonName,
			ScientificName: it.ScientificName,
			Score:          it.Score,
			ThumbnailURL:   optional(it.ThumbnailURL),
			FieldMarks:     marks,
		}
	}
	return SearchResponse{Results: items, TotalCount: o.TotalCount, QueryID: o.QueryID}
}

func speciesResponseFrom(r species.Record) speciesResponse {
	return speciesResponse{
		ID:             r.ID,
		CommonName:     r.CommonName,
		ScientificName: r.ScientificName,
		Description:    r.Description,
		ThumbnailURL:   optional(r.ThumbnailURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
