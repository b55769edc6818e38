package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
)

// Report summarizes one Index call.
type Report struct {
	Collection string `json:"collection"`
	Indexed    int    `json:"indexed"`
	Created    bool   `json:"created"`
}

// Service embeds documents and writes them into a collection.
type Service struct {
	embedder   domain.Embedder
	store      Store
	dimensions int
	metric     domcol.Metric
	logger     *zap.Logger
}

// New creates an indexer. dimensions and metric apply to collections it has to create.
func New(embedder domain.Embedder, store Store, dimensions int, metric domcol.Metric, logger *zap.Logger) *Service {
	return &Service{
		embedder:   embedder,
		store:      store,
		dimensions: dimensions,
		metric:     metric,
		logger:     logger,
	}
}

// Index ensures the collection exists, embeds all texts in one batch and upserts
// one point per document (id = document id, payload {"page_content": text}).
// Re-indexing the same documents overwrites them.
func (s *Service) Index(ctx context.Context, collection string, docs []domain.Document) (Report, error) {
	start := time.Now()
	report := Report{Collection: collection}

	exists, err := s.store.Exists(ctx, collection)
	if err != nil {
		return report, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		if _, err := s.store.Create(ctx, collection, s.dimensions, s.metric); err != nil {
			return report, fmt.Errorf("create collection %s: %w", collection, err)
		}
		report.Created = true
		s.logger.Info("Collection created",
			zap.String("collection", collection),
			zap.Int("dimensions", s.dimensions),
			zap.String("metric", string(s.metric)),
		)
	}

	if len(docs) == 0 {
		return report, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	emb, err := domain.EmbedBatch(ctx, s.embedder, texts)
	if err != nil {
		return report, fmt.Errorf("embed %d documents: %w", len(docs), err)
	}

	points := make([]point.Point, len(docs))
	for i, d := range docs {
		p, err := point.FromText(d.ID, emb.Embeddings[i], d.Text)
		if err != nil {
			return report, fmt.Errorf("document %d: %w: %w", d.ID, domain.ErrEncoding, err)
		}
		points[i] = p
	}

	if err := s.store.Upsert(ctx, collection, points); err != nil {
		return report, fmt.Errorf("index into %s: %w", collection, err)
	}

	report.Indexed = len(point.Dedup(points))
	s.logger.Info("Documents indexed",
		zap.String("collection", collection),
		zap.Int("documents", report.Indexed),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}
