package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchCalls int
	batchTexts []string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = texts
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// mockKVStore implements the consumer interface for tests.
// Without mgetFn, MGet answers each key through Get.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	mgetFn func(ctx context.Context, keys []string) ([][]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	msetFn func(ctx context.Context, entries []db.Entry, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		data, err := m.Get(ctx, k)
		if errors.Is(err, db.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) MSet(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	if m.msetFn != nil {
		return m.msetFn(ctx, entries, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "minilm", 0, nil, zap.NewNop())
	return ce, ms
}
