package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// DefaultMaxBatchSize caps the number of texts sent in one provider request.
const DefaultMaxBatchSize = 256

// InstrumentedEmbedder is the outermost layer of the embedding chain. It
// records Prometheus metrics and per-request token usage, logs failures, and
// splits batches larger than the provider limit.
type InstrumentedEmbedder struct {
	inner        domain.Embedder
	model        string
	maxBatchSize int
	logger       *zap.Logger
}

// NewInstrumentedEmbedder uses DefaultMaxBatchSize when maxBatchSize <= 0.
func NewInstrumentedEmbedder(
	inner domain.Embedder, model string, maxBatchSize int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &InstrumentedEmbedder{inner: inner, model: model, maxBatchSize: maxBatchSize, logger: logger}
}

func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	p.observe(ctx, "single", start, res.TotalTokens, err,
		zap.Int("dimensions", len(res.Embedding)))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return res, nil
}

// BatchEmbed sends texts in chunks of at most maxBatchSize and concatenates
// the vectors in input order. The first failing chunk aborts the batch.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	var err error
	for chunk := range slices.Chunk(texts, p.maxBatchSize) {
		var res domain.BatchEmbeddingResult
		if res, err = domain.EmbedBatch(ctx, p.inner, chunk); err != nil {
			err = fmt.Errorf("batch embed (%d of %d done): %w", len(out.Embeddings), len(texts), err)
			break
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.observe(ctx, "batch", start, out.TotalTokens, err, zap.Int("batch_size", len(texts)))
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	return out, nil
}

func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *InstrumentedEmbedder) observe(
	ctx context.Context, kind string, start time.Time, tokens int, err error, fields ...zap.Field,
) {
	took := time.Since(start)
	metrics.EmbeddingRequestDuration.WithLabelValues(p.model, kind).Observe(took.Seconds())
	fields = append(fields, zap.String("model", p.model), zap.String("kind", kind), zap.Duration("duration", took))

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.model, errorType(err)).Inc()
		p.logger.Error("Embedding request failed", append(fields, zap.Error(err))...)
		return
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(p.model, "ok").Inc()
	if tokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(p.model).Add(float64(tokens))
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(tokens)
	p.logger.Debug("Embedding request completed", append(fields, zap.Int("total_tokens", tokens))...)
}

// errorType is the error_type label of EmbeddingErrorsTotal.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrModelUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrEncoding):
		return "encoding"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
