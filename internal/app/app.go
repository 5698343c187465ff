// Package app is the composition root shared by the CLI and the embeddable client.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/config"
	"github.com/kailas-cloud/birdmatch/internal/db"
	"github.com/kailas-cloud/birdmatch/internal/db/postgres"
	dbredis "github.com/kailas-cloud/birdmatch/internal/db/redis"
	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/fieldmark"
	"github.com/kailas-cloud/birdmatch/internal/repository/audit"
	"github.com/kailas-cloud/birdmatch/internal/repository/embcache"
	speciesrepo "github.com/kailas-cloud/birdmatch/internal/repository/species"
	chitransport "github.com/kailas-cloud/birdmatch/internal/transport/chi"
	openaiemb "github.com/kailas-cloud/birdmatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/birdmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/birdmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/birdmatch/internal/usecase/search"
)

// App holds the wired services and everything that must be released on Close.
type App struct {
	Search *searchuc.Service
	Health *healthuc.Service

	cfg     config.Config
	logger  *zap.Logger
	closers []func()
}

// Option customizes wiring beyond what config expresses.
type Option func(*options)

type options struct {
	provider domain.Embedder
}

// WithProvider replaces the OpenAI provider at the base of the embedding chain.
// Caching and instrumentation still wrap it.
func WithProvider(e domain.Embedder) Option {
	return func(o *options) { o.provider = e }
}

// backend is what the app needs from a species store, whichever driver backs it.
type backend struct {
	records searchuc.RecordStore
	pinger  db.Pinger
	kv      db.KVStore
	stream  db.StreamAppender
	close   func()
}

// New connects to the configured store and wires the search pipeline.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, closers: []func(){b.close}}

	embedder := buildEmbedder(cfg, o.provider, b.kv, logger)

	rules := fieldmark.DefaultRules()
	if len(cfg.Search.FieldMarkPatterns) > 0 {
		custom, err := fieldmark.ParseRules(cfg.Search.FieldMarkPatterns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("field marks: %w", err)
		}
		rules = append(rules, custom...)
	}

	rankerOpts := []searchuc.RankerOption{}
	if cfg.Search.Workers > 0 {
		pool, err := ants.NewPool(cfg.Search.Workers)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		a.closers = append(a.closers, pool.Release)
		rankerOpts = append(rankerOpts, searchuc.WithWorkerPool(pool, cfg.Search.ParallelThreshold))
	}

	sinks := audit.Multi{audit.NewLogSink(logger)}
	if cfg.Audit.Stream && b.stream != nil {
		sinks = append(sinks, audit.NewStreamSink(b.stream, cfg.Audit.StreamKey, cfg.Audit.StreamMaxLen))
	}

	searchDefaults := cfg.SearchDefaults()
	a.Search = searchuc.New(b.records, embedder,
		searchuc.WithSearchConfig(searchDefaults),
		searchuc.WithDimensions(cfg.Embedding.Dimensions),
		searchuc.WithEmbedTimeout(time.Duration(cfg.Embedding.TimeoutSec)*time.Second),
		searchuc.WithRanker(searchuc.NewRanker(b.records, rankerOpts...)),
		searchuc.WithFieldMarks(fieldmark.NewExtractor(searchDefaults.MaxFieldMarks, rules...)),
		searchuc.WithAuditSink(sinks),
		searchuc.WithLogger(logger),
	)
	a.Health = healthuc.New(b.pinger, embedder)

	logger.Info("Search pipeline ready",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("audit_sinks", len(sinks)),
	)
	return a, nil
}

// Handler builds the HTTP router with the configured auth and rate limits.
// Limiters are stopped on Close.
func (a *App) Handler() http.Handler {
	rc := chitransport.RouterConfig{
		APIKeys:    a.cfg.Auth.APIKeys,
		TrustProxy: a.cfg.HTTP.TrustProxy,
	}
	if rpm := a.cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		rc.Limiter = chitransport.NewRateLimiter(chitransport.ScopeGlobal, rpm, a.cfg.RateLimit.Burst)
		a.closers = append(a.closers, rc.Limiter.Close)
	}
	if rpm := a.cfg.RateLimit.SearchRequestsPerMinute; rpm > 0 {
		rc.SearchLimiter = chitransport.NewRateLimiter(chitransport.ScopeSearch, rpm, a.cfg.RateLimit.SearchBurst)
		a.closers = append(a.closers, rc.SearchLimiter.Close)
	}

	server := chitransport.NewServer(a.Search, a.Health, a.logger)
	return chitransport.NewRouter(server, rc, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	dims := cfg.Embedding.Dimensions

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return backend{}, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return backend{}, fmt.Errorf("database not ready: %w", err)
		}
		return backend{
			records: speciesrepo.New(store, dims, logger),
			pinger:  store,
			kv:      store,
			stream:  store,
			close:   store.Close,
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return backend{}, fmt.Errorf("create postgres pool: %w", err)
		}
		store := postgres.NewStore(pool, dims)
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return backend{}, fmt.Errorf("database not ready: %w", err)
		}
		return backend{records: store, pinger: store, close: store.Close}, nil

	default:
		return backend{}, errors.New("unknown database driver: " + cfg.Database.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// A nil provider means OpenAI; kv may be nil, leaving the cache memory-only.
func buildEmbedder(
	cfg config.Config, provider domain.Embedder, kv db.KVStore, logger *zap.Logger,
) *embeddinguc.InstrumentedEmbedder {
	ec := cfg.Embedding

	embedder := provider
	if embedder == nil {
		embedder = openaiemb.NewEmbedder(&openaiemb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	}

	if ec.Cache.Enabled {
		cc := embcache.Config{
			Model:       ec.Model,
			MemorySize:  ec.Cache.MemorySize,
			MemoryTTL:   time.Duration(ec.Cache.MemoryTTLSec) * time.Second,
			StoreTTL:    time.Duration(ec.Cache.StoreTTLHours) * time.Hour,
			FillTimeout: time.Duration(ec.TimeoutSec) * time.Second,
		}
		embedder = embcache.New(embedder, kv, cc, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		embedder, ec.Provider, ec.Model,
		time.Duration(ec.TimeoutSec)*time.Second, logger,
	)
}
