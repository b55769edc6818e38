package point

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	dompoint "github.com/kailas-cloud/vecrag/internal/domain/point"
)

// store is the consumer interface for points (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/vectorstore.PointRepository.
type Repo struct {
	store store
}

// New creates a point repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes every point of the batch in a single transaction.
// Point keys share the collection hash tag, so the batch maps to one slot.
func (r *Repo) Upsert(ctx context.Context, collectionName string, points []dompoint.Point) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(points))
	for _, p := range points {
		fields, err := buildHashFields(p)
		if err != nil {
			return fmt.Errorf("point %d: %w", p.ID(), err)
		}
		items = append(items, db.HashSetItem{
			Key:    domain.PointKey(collectionName, p.ID()),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(items), collectionName, err)
	}
	return nil
}

// GetPoint returns a single point by ID.
func (r *Repo) GetPoint(ctx context.Context, collectionName string, id uint64) (dompoint.Point, error) {
	key := domain.PointKey(collectionName, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dompoint.Point{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return dompoint.Point{}, domain.ErrNotFound
	}
	return parseHashFields(id, m)
}

// Count returns the number of points in a collection.
func (r *Repo) Count(ctx context.Context, collectionName string) (int, error) {
	n, err := r.store.SearchCount(ctx, domain.IndexName(collectionName), "*")
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", collectionName, err)
	}
	return n, nil
}

// IDFromKey extracts the point ID from a point hash key.
func IDFromKey(key, collectionName string) (uint64, error) {
	s := strings.TrimPrefix(key, domain.PointPrefix(collectionName))
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("point key %q: %w", key, err)
	}
	return id, nil
}
