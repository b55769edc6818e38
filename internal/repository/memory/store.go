// Package memory is an in-process vector store using brute-force scoring.
// It backs tests and single-node demos where no Redis or Postgres is available.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	dompoint "github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/domain/similarity"
)

type collectionData struct {
	meta   domcol.Collection
	points map[uint64]dompoint.Point
}

// Store keeps collections and their points in maps guarded by a RWMutex.
// It implements the collection, point and search repositories at once.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collectionData
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collectionData)}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Create registers a collection.
func (s *Store) Create(_ context.Context, col domcol.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[col.Name()]; ok {
		return domain.ErrAlreadyExists
	}
	s.collections[col.Name()] = &collectionData{meta: col, points: make(map[uint64]dompoint.Point)}
	return nil
}

// Get returns a collection by name.
func (s *Store) Get(_ context.Context, name string) (domcol.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return c.meta, nil
}

// Delete removes a collection and all of its points.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return domain.ErrNotFound
	}
	delete(s.collections, name)
	return nil
}

// Upsert replaces points by ID. The whole batch is applied under one lock.
func (s *Store) Upsert(_ context.Context, collectionName string, points []dompoint.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collectionName]
	if !ok {
		return domain.ErrNotFound
	}
	for _, p := range points {
		vec := slices.Clone(p.Vector())
		c.points[p.ID()] = dompoint.Reconstruct(p.ID(), vec, maps.Clone(p.Payload()))
	}
	return nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(_ context.Context, collectionName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionName]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return len(c.points), nil
}

// GetPoint returns a copy of a stored point.
func (s *Store) GetPoint(_ context.Context, collectionName string, id uint64) (dompoint.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionName]
	if !ok {
		return dompoint.Point{}, domain.ErrNotFound
	}
	p, ok := c.points[id]
	if !ok {
		return dompoint.Point{}, domain.ErrNotFound
	}
	return dompoint.Reconstruct(id, slices.Clone(p.Vector()), maps.Clone(p.Payload())), nil
}

// SearchKNN scores every point against vector with the collection metric.
// Ties are broken by ascending point ID.
func (s *Store) SearchKNN(
	ctx context.Context, col domcol.Collection, vector []float32, topK int,
) ([]result.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[col.Name()]
	if !ok {
		return nil, domain.ErrNotFound
	}

	ids := slices.Sorted(maps.Keys(c.points))
	results := make([]result.Result, 0, len(ids))
	for i, id := range ids {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p := c.points[id]
		results = append(results, result.New(id, similarity.Score(c.meta.Metric(), vector, p.Vector()), p.Payload()))
	}

	slices.SortStableFunc(results, func(a, b result.Result) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
