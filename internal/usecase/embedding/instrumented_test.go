package embedding

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i)}
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * len(texts),
	}, nil
}

// plainMockEmbedder has no native batch support.
type plainMockEmbedder struct {
	calls int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 1}, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 4}}
	p := NewInstrumentedEmbedder(inner, "minilm-ok", 0, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	result, err := p.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if usage.EmbeddingTokens != 4 || !usage.Used {
		t.Errorf("usage not recorded: %+v", usage)
	}
	if v := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("minilm-ok", "ok")); v != 1 {
		t.Errorf("requests_total{ok} = %v, want 1", v)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrModelUnavailable}
	p := NewInstrumentedEmbedder(inner, "minilm-err", 0, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if v := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("minilm-err", "unavailable")); v != 1 {
		t.Errorf("errors_total{unavailable} = %v, want 1", v)
	}
}

func TestInstrumentedEmbedder_BatchChunking(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{TotalTokens: 1}}
	p := NewInstrumentedEmbedder(inner, "minilm", 4, zap.NewNop())

	texts := make([]string, 10)
	res, err := p.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 10 {
		t.Fatalf("expected 10 embeddings, got %d", len(res.Embeddings))
	}
	want := []int{4, 4, 2}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("chunk sizes = %v, want %v", inner.batchSizes, want)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, inner.batchSizes[i], want[i])
		}
	}
	// order preserved across chunks: the mock encodes the index within the chunk
	if res.Embeddings[4][0] != 0 || res.Embeddings[9][0] != 1 {
		t.Errorf("unexpected ordering: %v", res.Embeddings)
	}
	if res.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", res.TotalTokens)
	}
}

func TestInstrumentedEmbedder_BatchEmpty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "minilm", 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil || len(inner.batchSizes) != 0 {
		t.Errorf("expected no provider call for empty input")
	}
}

func TestInstrumentedEmbedder_BatchInnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrEncoding}
	p := NewInstrumentedEmbedder(inner, "minilm", 0, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchFallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "minilm", 0, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 || len(res.Embeddings) != 3 {
		t.Errorf("expected 3 single calls, got %d (embeddings %d)", inner.calls, len(res.Embeddings))
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrModelUnavailable, "unavailable"},
		{domain.ErrEncoding, "encoding"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range tests {
		if got := errorType(tc.err); got != tc.want {
			t.Errorf("errorType(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
