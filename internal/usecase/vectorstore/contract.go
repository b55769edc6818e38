package vectorstore

import (
	"context"

	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
)

// CollectionRepository defines the storage contract for collection metadata.
type CollectionRepository interface {
	Create(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, name string) (domcol.Collection, error)
	Delete(ctx context.Context, name string) error
}

// PointRepository defines the storage contract for indexed points.
// Upsert must apply the whole batch or nothing.
type PointRepository interface {
	Upsert(ctx context.Context, collectionName string, points []point.Point) error
	GetPoint(ctx context.Context, collectionName string, id uint64) (point.Point, error)
	Count(ctx context.Context, collectionName string) (int, error)
}

// Searcher performs nearest-neighbour queries with higher-is-better scores.
type Searcher interface {
	SearchKNN(ctx context.Context, col domcol.Collection, vector []float32, topK int) ([]result.Result, error)
}
