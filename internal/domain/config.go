package domain

// KeyPrefix namespaces every key written to the key-value store.
const KeyPrefix = "birdmatch:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the default configuration tuned for text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "cosine",
	}
}

// SearchConfig holds product tuning for a search call.
// Every value is overridable from configuration.
type SearchConfig struct {
	MinQueryLength int
	MaxQueryLength int
	DefaultLimit   int
	MinScore       float64
	MaxFieldMarks  int
}

// DefaultSearchConfig returns the defaults: query length 3..500, limit 10, min score 0.3, 5 field marks.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MinQueryLength: 3,
		MaxQueryLength: 500,
		DefaultLimit:   10,
		MinScore:       0.3,
		MaxFieldMarks:  5,
	}
}
