package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/birdmatch/internal/db"
	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/vector"
	"github.com/kailas-cloud/birdmatch/internal/metrics"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// Cache tiers reported in metrics.
const (
	tierMemory = "memory"
	tierStore  = "store"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultMemorySize  = 1024
	DefaultMemoryTTL   = 10 * time.Minute
	DefaultStoreTTL    = 7 * 24 * time.Hour
	DefaultFillTimeout = 30 * time.Second
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config controls both cache tiers. MemorySize < 0 disables the in-process tier.
// FillTimeout bounds the shared provider call and store write made on a miss.
type Config struct {
	Model       string
	MemorySize  int
	MemoryTTL   time.Duration
	StoreTTL    time.Duration
	FillTimeout time.Duration
}

// CachedEmbedder caches embeddings in process memory and then in a key-value store.
// Concurrent misses for the same text share one provider call.
type CachedEmbedder struct {
	inner       domain.Embedder
	store       store
	memory      *expirable.LRU[string, []float32]
	group       singleflight.Group
	model       string
	storeTTL    time.Duration
	fillTimeout time.Duration
	logger      *zap.Logger
}

// New creates a caching decorator. s may be nil, leaving only the memory tier.
func New(inner domain.Embedder, s store, cfg Config, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = DefaultMemoryTTL
	}
	if cfg.StoreTTL <= 0 {
		cfg.StoreTTL = DefaultStoreTTL
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = DefaultFillTimeout
	}

	c := &CachedEmbedder{
		inner:       inner,
		store:       s,
		model:       cfg.Model,
		storeTTL:    cfg.StoreTTL,
		fillTimeout: cfg.FillTimeout,
		logger:      logger,
	}
	if cfg.MemorySize > 0 {
		c.memory = expirable.NewLRU[string, []float32](cfg.MemorySize, nil, cfg.MemoryTTL)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit in either tier reports zero tokens. The shared call on a miss is detached
// from every caller's cancellation; each caller stops waiting on its own ctx.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.fromMemory(key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	if vec, ok := c.fromStore(ctx, key); ok {
		c.toMemory(key, vec)
		return domain.EmbeddingResult{Embedding: slices.Clone(vec)}, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fillTimeout)
		defer cancel()

		res, err := c.inner.Embed(fillCtx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.toMemory(key, res.Embedding)
		c.toStore(fillCtx, key, res.Embedding)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", r.Err)
		}
		res := r.Val.(domain.EmbeddingResult)
		if r.Shared {
			res.Embedding = slices.Clone(res.Embedding)
		}
		return res, nil
	}
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Len reports the number of entries in the memory tier.
func (c *CachedEmbedder) Len() int {
	if c.memory == nil {
		return 0
	}
	return c.memory.Len()
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) fromMemory(key string) ([]float32, bool) {
	if c.memory == nil {
		return nil, false
	}
	vec, ok := c.memory.Get(key)
	if !ok {
		metrics.EmbeddingCacheTotal.WithLabelValues(tierMemory, "miss").Inc()
		return nil, false
	}
	metrics.EmbeddingCacheTotal.WithLabelValues(tierMemory, "hit").Inc()
	return slices.Clone(vec), true
}

func (c *CachedEmbedder) toMemory(key string, vec []float32) {
	if c.memory != nil {
		c.memory.Add(key, slices.Clone(vec))
	}
}

func (c *CachedEmbedder) fromStore(ctx context.Context, key string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		metrics.EmbeddingCacheTotal.WithLabelValues(tierStore, "miss").Inc()
		return nil, false
	}

	vec, err := vector.FromBytes(data)
	if err != nil || len(vec) == 0 {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		metrics.EmbeddingCacheTotal.WithLabelValues(tierStore, "miss").Inc()
		return nil, false
	}

	metrics.EmbeddingCacheTotal.WithLabelValues(tierStore, "hit").Inc()
	return vec, true
}

func (c *CachedEmbedder) toStore(ctx context.Context, key string, vec []float32) {
	if c.store == nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, vector.ToBytes(vec), c.storeTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}
