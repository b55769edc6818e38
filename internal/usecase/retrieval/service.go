package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// Service embeds a query and returns the nearest stored texts.
type Service struct {
	embedder domain.Embedder
	store    Store
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder domain.Embedder, store Store, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, store: store, logger: logger}
}

// Retrieve returns up to k page_content strings, most similar first.
func (s *Service) Retrieve(ctx context.Context, collection, query string, k int) ([]string, error) {
	hits, err := s.RetrieveScored(ctx, collection, query, k)
	if err != nil {
		return nil, err
	}
	return result.Contents(hits), nil
}

// RetrieveScored returns up to k hits with scores, most similar first.
// An empty collection yields no hits and no error.
func (s *Service) RetrieveScored(ctx context.Context, collection, query string, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidArgument)
	}

	start := time.Now()

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.observe(collection, "embed_error", start)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Query(ctx, collection, emb.Embedding, k)
	if err != nil {
		s.observe(collection, "store_error", start)
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	s.observe(collection, "ok", start)
	metrics.RetrievalHits.WithLabelValues(collection).Observe(float64(len(hits)))

	s.logger.Debug("Retrieval completed",
		zap.String("collection", collection),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)),
	)

	return hits, nil
}

func (s *Service) observe(collection, status string, start time.Time) {
	metrics.RetrievalDuration.WithLabelValues(collection, status).Observe(time.Since(start).Seconds())
}
