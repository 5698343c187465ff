package birdmatch

import (
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
)

// Result is one ranked species.
type Result struct {
	ID             string
	CommonName     string
	ScientificName string
	Score          float64 // cosine similarity rounded to two decimals
	ThumbnailURL   string
	FieldMarks     []string
}

// SearchResponse is the outcome of one search.
type SearchResponse struct {
	Results    []Result
	TotalCount int
	QueryID    string
}

// Species is a display record. It never carries the embedding.
type Species struct {
	ID             string
	CommonName     string
	ScientificName string
	Description    string
	ThumbnailURL   string
}

// Taxonomy describes the loaded species list.
type Taxonomy struct {
	Version   string
	UpdatedAt string
	Source    string
}

// SearchOption overrides a configured default for one search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit    *int
	minScore *float64
}

// Limit caps the number of results (1..100).
func Limit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = &n }
}

// MinScore drops results scoring below s (-1..1).
func MinScore(s float64) SearchOption {
	return func(o *searchOptions) { o.minScore = &s }
}

func (o searchOptions) toRequest() []request.Option {
	var out []request.Option
	if o.limit != nil {
		out = append(out, request.WithLimit(*o.limit))
	}
	if o.minScore != nil {
		out = append(out, request.WithMinScore(*o.minScore))
	}
	return out
}

func fromOutcome(out result.Outcome) SearchResponse {
	results := make([]Result, len(out.Results))
	for i, it := range out.Results {
		results[i] = Result{
			ID:             it.ID,
			CommonName:     it.CommonName,
			ScientificName: it.ScientificName,
			Score:          it.Score,
			ThumbnailURL:   it.ThumbnailURL,
			FieldMarks:     it.FieldMarks,
		}
	}
	return SearchResponse{Results: results, TotalCount: out.TotalCount, QueryID: out.QueryID}
}

func fromRecord(r species.Record) Species {
	return Species{
		ID:             r.ID,
		CommonName:     r.CommonName,
		ScientificName: r.ScientificName,
		Description:    r.Description,
		ThumbnailURL:   r.ThumbnailURL,
	}
}
