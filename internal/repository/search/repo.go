package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/repository/collection"
	"github.com/kailas-cloud/vecrag/internal/repository/point"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/vectorstore.Searcher.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN performs a KNN (vector similarity) search on a collection.
// Results come back best first with higher-is-better scores.
func (r *Repo) SearchKNN(
	ctx context.Context, col domcol.Collection, vector []float32, topK int,
) ([]result.Result, error) {
	q := &db.KNNQuery{
		IndexName:    domain.IndexName(col.Name()),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{point.FieldID, point.FieldPayload},
		Distance:     collection.DistanceFor(col.Metric()),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", col.Name(), err)
	}

	return parseKNNResults(sr, col.Name())
}

// parseKNNResults converts db.SearchResult into []result.Result.
func parseKNNResults(sr *db.SearchResult, collectionName string) ([]result.Result, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id, err := entryID(entry, collectionName)
		if err != nil {
			return nil, err
		}
		payload, err := point.DecodePayload(entry.Fields[point.FieldPayload])
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", id, err)
		}
		results = append(results, result.New(id, entry.Score, payload))
	}

	result.SortByScore(results)
	return results, nil
}

// entryID prefers the indexed __id field and falls back to the key suffix.
func entryID(entry db.SearchEntry, collectionName string) (uint64, error) {
	if s, ok := entry.Fields[point.FieldID]; ok {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			return id, nil
		}
	}
	return point.IDFromKey(entry.Key, collectionName)
}
