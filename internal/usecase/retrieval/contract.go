package retrieval

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
)

// Store is the vector store query contract.
type Store interface {
	Query(ctx context.Context, name string, vector []float32, k int) ([]result.Result, error)
}
