package index

import (
	"context"

	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
)

// Store is the subset of the vector store the indexer writes through.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, dimensions int, metric domcol.Metric) (domcol.Collection, error)
	Upsert(ctx context.Context, name string, points []point.Point) error
}
