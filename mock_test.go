package birdmatch

import (
	"context"

	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	healthuc "github.com/kailas-cloud/birdmatch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn   func(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error)
	speciesFn  func(ctx context.Context, id string) (species.Record, error)
	taxonomyFn func(ctx context.Context) (species.Taxonomy, error)
}

func (m *mockSearchUC) Search(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error) {
	return m.searchFn(ctx, query, opts...)
}

func (m *mockSearchUC) Species(ctx context.Context, id string) (species.Record, error) {
	return m.speciesFn(ctx, id)
}

func (m *mockSearchUC) Taxonomy(ctx context.Context) (species.Taxonomy, error) {
	return m.taxonomyFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}
