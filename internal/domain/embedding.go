package domain

import (
	"context"
	"strings"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// NormalizeWhitespace trims text and collapses internal whitespace runs to a single space.
// Queries differing only in formatting produce the same provider input.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
