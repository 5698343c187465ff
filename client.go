package birdmatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/app"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	healthuc "github.com/kailas-cloud/birdmatch/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error)
	Species(ctx context.Context, id string) (species.Record, error)
	Taxonomy(ctx context.Context) (species.Taxonomy, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the birdmatch entry point.
type Client struct {
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
	close     func()
}

// New creates a Client and connects to the species store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := newClientConfig()
	for _, o := range opts {
		o.apply(cc)
	}

	cc.cfg.ApplyDefaults()
	if err := cc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("birdmatch: %w (use WithValkey, WithRedis or WithPostgres)", err)
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	var appOpts []app.Option
	if cc.embedder != nil {
		appOpts = append(appOpts, app.WithProvider(&embedderAdapter{inner: cc.embedder}))
	}

	logger := cc.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a, err := app.New(ctx, cc.cfg, logger, appOpts...)
	if err != nil {
		return nil, fmt.Errorf("birdmatch: %w", err)
	}

	return &Client{
		searchSvc: a.Search,
		healthSvc: a.Health,
		obs:       obs,
		close:     a.Close,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// Search ranks every stored species against a free-text description.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (SearchResponse, error) {
	start := time.Now()

	var so searchOptions
	for _, o := range opts {
		o(&so)
	}

	out, err := c.searchSvc.Search(ctx, query, so.toRequest()...)
	c.obs.observe("search", start, err)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return fromOutcome(out), nil
}

// Species returns one species by id. Missing ids yield ErrSpeciesNotFound.
func (c *Client) Species(ctx context.Context, id string) (Species, error) {
	start := time.Now()
	rec, err := c.searchSvc.Species(ctx, id)
	c.obs.observe("species", start, err)
	if err != nil {
		return Species{}, fmt.Errorf("species: %w", err)
	}
	return fromRecord(rec), nil
}

// Taxonomy describes the loaded species list.
func (c *Client) Taxonomy(ctx context.Context) (Taxonomy, error) {
	start := time.Now()
	t, err := c.searchSvc.Taxonomy(ctx)
	c.obs.observe("taxonomy", start, err)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("taxonomy: %w", err)
	}
	return Taxonomy{Version: t.Version, UpdatedAt: t.UpdatedAt, Source: t.Source}, nil
}
