package chi

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	indexuc "github.com/kailas-cloud/vecrag/internal/usecase/index"
	raguc "github.com/kailas-cloud/vecrag/internal/usecase/rag"
)

// CollectionService manages collection lifecycle.
type CollectionService interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, dimensions int, metric domcol.Metric) (domcol.Collection, error)
	Get(ctx context.Context, name string) (domcol.Collection, error)
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)
	GetPoint(ctx context.Context, name string, id uint64) (point.Point, error)
}

// Indexer embeds and stores documents.
type Indexer interface {
	Index(ctx context.Context, collection string, docs []domain.Document) (indexuc.Report, error)
}

// Retriever returns scored hits for a text query.
type Retriever interface {
	RetrieveScored(ctx context.Context, collection, query string, k int) ([]result.Result, error)
}

// Pipeline answers questions end to end.
type Pipeline interface {
	Run(ctx context.Context, req raguc.Request) (raguc.Trace, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
