package birdmatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg      config.Config
	embedder Embedder

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func newClientConfig() *clientConfig {
	c := &clientConfig{}
	c.cfg.Database.ReadinessTimeout = int(defaultReadinessTimeout / time.Second)
	c.cfg.Embedding.Cache.Enabled = true
	return c
}

// WithValkey connects to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = config.DriverValkey
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithRedis connects to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = config.DriverRedis
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithPostgres reads species from PostgreSQL with pgvector embeddings.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Database.Driver = config.DriverPostgres
		c.cfg.Database.DSN = dsn
	})
}

// WithOpenAI sets the API key of the default OpenAI embedding provider.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.APIKey = apiKey
	})
}

// WithBaseURL points the OpenAI provider at a compatible endpoint.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.BaseURL = url
	})
}

// WithModel selects the embedding model and its vector dimension.
// Both must match the model the corpus was embedded with.
// Defaults to text-embedding-3-small / 1536.
func WithModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Model = model
		c.cfg.Embedding.Dimensions = dimensions
	})
}

// WithEmbedder replaces the OpenAI provider. Caching still applies.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithoutEmbeddingCache disables the embedding cache.
func WithoutEmbeddingCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Embedding.Cache.Enabled = false
	})
}

// WithSearchDefaults overrides the default result limit and similarity threshold.
// Defaults: 10 results, min score 0.3.
func WithSearchDefaults(limit int, minScore float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.DefaultLimit = limit
		c.cfg.Search.MinScore = &minScore
	})
}

// WithWorkers scores large corpora on a pool of n goroutines.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Search.Workers = n
	})
}

// WithAuditStream also appends search audit entries to a capped Redis stream.
// Ignored for PostgreSQL. An empty key uses birdmatch:audit.
func WithAuditStream(key string, maxLen int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Audit.Stream = true
		c.cfg.Audit.StreamKey = key
		c.cfg.Audit.StreamMaxLen = maxLen
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
