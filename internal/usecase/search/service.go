package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/audit"
	"github.com/kailas-cloud/birdmatch/internal/domain/fieldmark"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	"github.com/kailas-cloud/birdmatch/internal/domain/vector"
	"github.com/kailas-cloud/birdmatch/internal/metrics"
)

// Defaults for the provider call and audit write budgets.
const (
	DefaultEmbedTimeout = 10 * time.Second
	DefaultAuditTimeout = 2 * time.Second
)

// Service runs the search pipeline: validate, embed, rank, hydrate.
type Service struct {
	store        RecordStore
	embed        Embedder
	ranker       *Ranker
	marks        FieldMarkExtractor
	audit        AuditSink
	cfg          domain.SearchConfig
	dimensions   int
	embedTimeout time.Duration
	logger       *zap.Logger
	newID        func() string
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSearchConfig overrides the default query bounds, limit, threshold and field mark cap.
func WithSearchConfig(cfg domain.SearchConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithDimensions enforces the embedding dimension of query vectors. 0 disables the check.
func WithDimensions(dim int) Option {
	return func(s *Service) { s.dimensions = dim }
}

// WithEmbedTimeout bounds each provider call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Service) { s.embedTimeout = d }
}

// WithAuditSink sets where audit entries go.
func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithFieldMarks replaces the field mark extractor.
func WithFieldMarks(e FieldMarkExtractor) Option {
	return func(s *Service) { s.marks = e }
}

// WithRanker replaces the default sequential ranker.
func WithRanker(r *Ranker) Option {
	return func(s *Service) { s.ranker = r }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDGenerator overrides query id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock overrides the audit timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// New creates a search service.
func New(store RecordStore, embed Embedder, opts ...Option) *Service {
	s := &Service{
		store:        store,
		embed:        embed,
		cfg:          domain.DefaultSearchConfig(),
		embedTimeout: DefaultEmbedTimeout,
		logger:       zap.NewNop(),
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ranker == nil {
		s.ranker = NewRanker(store)
	}
	if s.marks == nil {
		s.marks = fieldmark.NewExtractor(s.cfg.MaxFieldMarks)
	}
	return s
}

// Search runs one query through the pipeline.
func (s *Service) Search(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error) {
	outcome, err := s.search(ctx, query, opts...)
	metrics.SearchRequestsTotal.WithLabelValues(statusLabel(outcome, err)).Inc()
	if err == nil {
		metrics.SearchResults.Observe(float64(outcome.TotalCount))
	}
	return outcome, err
}

func (s *Service) search(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error) {
	req, err := request.New(query, s.cfg, opts...)
	if err != nil {
		return result.Outcome{}, err
	}

	start := time.Now()
	vec, err := s.embedQuery(ctx, req.Query())
	metrics.SearchStageDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			s.logger.Error("Query embedding dimension mismatch", zap.Int("expected", s.dimensions), zap.Error(err))
		} else {
			s.logger.Warn("Query embedding failed", zap.Int("query_length", req.Length()), zap.Error(err))
		}
		return result.Outcome{}, err
	}

	queryID := s.newID()
	s.recordAudit(ctx, audit.NewEntry(queryID, req.Query(), s.now()))

	start = time.Now()
	matches, err := s.ranker.Rank(ctx, vec, req.Limit(), req.MinScore())
	metrics.SearchStageDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			s.logger.Error("Corpus embedding dimension mismatch",
				zap.String("query_id", queryID),
				zap.Int("query_dimensions", len(vec)),
				zap.Error(err),
			)
		}
		return result.Outcome{}, fmt.Errorf("rank: %w", err)
	}

	if len(matches) == 0 {
		return result.NewOutcome(queryID, nil), nil
	}

	start = time.Now()
	items, err := s.hydrate(ctx, matches)
	metrics.SearchStageDuration.WithLabelValues("hydrate").Observe(time.Since(start).Seconds())
	if err != nil {
		return result.Outcome{}, fmt.Errorf("hydrate: %w", err)
	}

	return result.NewOutcome(queryID, items), nil
}

// embedQuery sends the whitespace-normalized query to the provider. The call is
// detached from caller cancellation and bounded by the embed timeout. Every
// provider failure, including the timeout, surfaces as ErrEmbeddingProviderError.
func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	text := domain.NormalizeWhitespace(query)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbeddingProviderError)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.embedTimeout)
	defer cancel()

	res, err := s.embed.Embed(callCtx, text)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	if err := vector.Validate(res.Embedding); err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if err := vector.CheckDimension(res.Embedding, s.dimensions); err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding, nil
}

// recordAudit writes the entry best-effort. Errors and panics from the sink are dropped.
func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.AuditFailuresTotal.WithLabelValues("panic").Inc()
			s.logger.Warn("Audit sink panicked", zap.String("query_id", entry.QueryID), zap.Any("panic", r))
		}
	}()

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultAuditTimeout)
	defer cancel()

	if err := s.audit.Record(auditCtx, entry); err != nil {
		metrics.AuditFailuresTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Audit record failed", zap.String("query_id", entry.QueryID), zap.Error(err))
	}
}

func (s *Service) hydrate(ctx context.Context, matches []result.Match) ([]result.Item, error) {
	ids := make([]string, len(matches))
	for i := range matches {
		ids[i] = matches[i].ID()
	}

	records, err := s.store.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	byID := make(map[string]*species.Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	items := make([]result.Item, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		rec, ok := byID[m.ID()]
		if !ok {
			continue
		}
		items = append(items, result.Item{
			ID:             m.ID(),
			CommonName:     firstNonEmpty(rec.CommonName, m.CommonName()),
			ScientificName: firstNonEmpty(rec.ScientificName, m.ScientificName()),
			Score:          result.RoundScore(m.Score()),
			ThumbnailURL:   rec.ThumbnailURL,
			FieldMarks:     s.marks.Extract(rec.Description),
		})
	}
	return items, nil
}

// Species returns one display record without its embedding.
func (s *Service) Species(ctx context.Context, id string) (species.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return species.Record{}, domain.NewValidationError("id", "species id is required")
	}
	records, err := s.store.ByIDs(ctx, []string{id})
	if err != nil {
		return species.Record{}, fmt.Errorf("load species: %w", err)
	}
	if len(records) == 0 {
		return species.Record{}, fmt.Errorf("species %q: %w", id, domain.ErrSpeciesNotFound)
	}
	return records[0].WithoutEmbedding(), nil
}

// Taxonomy returns taxonomy metadata, falling back to defaults when the store has none.
func (s *Service) Taxonomy(ctx context.Context) (species.Taxonomy, error) {
	tr, ok := s.store.(TaxonomyReader)
	if !ok {
		return species.Taxonomy{}.WithDefaults(), nil
	}
	t, err := tr.Taxonomy(ctx)
	if err != nil {
		return species.Taxonomy{}, fmt.Errorf("taxonomy: %w", err)
	}
	return t.WithDefaults(), nil
}

func statusLabel(o result.Outcome, err error) string {
	switch {
	case err == nil && o.TotalCount == 0:
		return metrics.SearchStatusEmpty
	case err == nil:
		return metrics.SearchStatusOK
	case errors.Is(err, domain.ErrValidation):
		return metrics.SearchStatusValidation
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return metrics.SearchStatusProvider
	default:
		return metrics.SearchStatusInternal
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
