package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MSet(ctx context.Context, entries []db.Entry, ttl time.Duration) error
}

// CachedEmbedder serves repeated texts from a key-value store. Keys are
// scoped by model so that switching models never returns stale vectors.
// Store failures are logged and treated as misses; they never fail a call.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	model  string
	ttl    time.Duration
	lookup *prometheus.CounterVec // label "result": hit or miss; may be nil
	logger *zap.Logger
}

// New wraps inner. A ttl <= 0 keeps entries until evicted by the server.
func New(
	inner domain.Embedder,
	s store,
	model string,
	ttl time.Duration,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, store: s, model: model, ttl: ttl, lookup: lookups, logger: logger}
}

// Embed reports zero tokens on a hit.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)
	if vec, ok := c.getFromCache(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.putToCache(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed looks up all texts in one store round trip and sends only the
// misses to the inner embedder in one batch. Output order matches input order.
// Store failures degrade to a full miss.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}

	cached, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to read cached embeddings", zap.Int("keys", len(keys)), zap.Error(err))
		cached = nil
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if i < len(cached) {
			if vec, ok := c.decode(keys[i], cached[i]); ok {
				c.count("hit")
				embeddings[i] = vec
				continue
			}
		}
		c.count("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	res, err := domain.EmbedBatch(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missTexts), err)
	}

	entries := make([]db.Entry, len(missIdx))
	for j, i := range missIdx {
		embeddings[i] = res.Embeddings[j]
		entries[j] = db.Entry{Key: keys[i], Value: vectorToCacheBytes(res.Embeddings[j])}
	}
	if err := c.store.MSet(ctx, entries, c.ttl); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("keys", len(entries)), zap.Error(err))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck delegates to the inner embedder when it supports it.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) count(result string) {
	if c.lookup != nil {
		c.lookup.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return domain.KeyPrefix + "emb_cache:" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return c.decode(key, data)
}

// decode treats empty or malformed entries as misses.
func (c *CachedEmbedder) decode(key string, data []byte) ([]float32, bool) {
	if len(data) == 0 {
		return nil, false
	}
	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte { return []byte(db.EncodeVector(v)) }

func bytesToVector(data []byte) ([]float32, error) {
	vec := db.DecodeVector(string(data))
	if vec == nil {
		return nil, fmt.Errorf("cached embedding: %d bytes is not a float32 vector", len(data))
	}
	return vec, nil
}
