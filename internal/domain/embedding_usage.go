package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates provider token usage for one search request.
// Transport attaches it to the context, the search pipeline fills it in.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // set on any embed call, including cache hits that cost 0 tokens
}

// NewContextWithUsage attaches a fresh usage collector to ctx.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens is safe to call on a nil collector.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.TotalTokens += n
	u.Used = true
}
