package request

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// Ranking parameter bounds.
const (
	MinLimit    = 1
	MaxLimit    = 100
	MinMinScore = -1.0
	MaxMinScore = 1.0
)

// Request is a validated search query.
type Request struct {
	query    string
	limit    int
	minScore float64
}

// Option overrides a configured default for one request.
type Option func(*Request)

// WithLimit overrides the result limit.
func WithLimit(limit int) Option {
	return func(r *Request) { r.limit = limit }
}

// WithMinScore overrides the similarity threshold.
func WithMinScore(minScore float64) Option {
	return func(r *Request) { r.minScore = minScore }
}

// New trims and validates the query, then applies defaults from cfg and any overrides.
func New(raw string, cfg domain.SearchConfig, opts ...Option) (Request, error) {
	query, err := ParseQuery(raw, cfg.MinQueryLength, cfg.MaxQueryLength)
	if err != nil {
		return Request{}, err
	}

	r := Request{query: query, limit: cfg.DefaultLimit, minScore: cfg.MinScore}
	for _, opt := range opts {
		opt(&r)
	}
	if err := ValidateRanking(r.limit, r.minScore); err != nil {
		return Request{}, err
	}
	return r, nil
}

// ParseQuery trims surrounding whitespace and checks the length in characters.
func ParseQuery(raw string, minLen, maxLen int) (string, error) {
	query := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(query)
	if n < minLen || n > maxLen {
		return "", domain.NewValidationError("query", "Query must be %d-%d characters", minLen, maxLen)
	}
	return query, nil
}

// ValidateRanking checks limit and minScore against their inclusive bounds.
func ValidateRanking(limit int, minScore float64) error {
	if limit < MinLimit || limit > MaxLimit {
		return domain.NewValidationError("limit", "limit must be between %d and %d", MinLimit, MaxLimit)
	}
	if math.IsNaN(minScore) || minScore < MinMinScore || minScore > MaxMinScore {
		return domain.NewValidationError("min_score", "min_score must be between %g and %g", MinMinScore, MaxMinScore)
	}
	return nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }

// MinScore returns the similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }

// Length returns the trimmed query length in characters.
func (r *Request) Length() int { return utf8.RuneCountInString(r.query) }
