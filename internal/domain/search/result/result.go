package result

import "math"

// Match is one ranked species. It never carries the embedding.
type Match struct {
	id             string
	commonName     string
	scientificName string
	score          float64
}

// NewMatch creates a ranked match.
func NewMatch(id, commonName, scientificName string, score float64) Match {
	return Match{id: id, commonName: commonName, scientificName: scientificName, score: score}
}

// ID returns the species identifier.
func (m *Match) ID() string { return m.id }

// CommonName returns the species common name.
func (m *Match) CommonName() string { return m.commonName }

// ScientificName returns the species scientific name.
func (m *Match) ScientificName() string { return m.scientificName }

// Score returns the raw cosine similarity.
func (m *Match) Score() float64 { return m.score }

// Item is a hydrated, display-ready search result.
type Item struct {
	ID             string
	CommonName     string
	ScientificName string
	Score          float64
	ThumbnailURL   string
	FieldMarks     []string
}

// Outcome is the response of one search call.
type Outcome struct {
	Results    []Item
	TotalCount int
	QueryID    string
}

// NewOutcome builds an outcome; TotalCount always equals len(items).
func NewOutcome(queryID string, items []Item) Outcome {
	if items == nil {
		items = []Item{}
	}
	return Outcome{Results: items, TotalCount: len(items), QueryID: queryID}
}

// RoundScore rounds to two decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
