package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
)

// Service enforces collection invariants on top of a storage backend:
// immutable configuration, fixed vector dimensionality and bounded queries.
type Service struct {
	cols         CollectionRepository
	points       PointRepository
	searcher     Searcher
	queryTimeout time.Duration
}

// New creates a vector store service.
func New(cols CollectionRepository, points PointRepository, searcher Searcher) *Service {
	return &Service{cols: cols, points: points, searcher: searcher}
}

// WithQueryTimeout bounds every Query call. Zero disables the bound.
func (s *Service) WithQueryTimeout(d time.Duration) *Service {
	s.queryTimeout = d
	return s
}

// Exists reports whether a collection is present.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.cols.Get(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check collection %s: %w: %w", name, domain.ErrStoreUnavailable, err)
}

// Create creates a collection. Re-creating with an identical configuration returns
// the stored collection; a different configuration fails with ErrAlreadyExists.
func (s *Service) Create(ctx context.Context, name string, dimensions int, metric domcol.Metric) (domcol.Collection, error) {
	col, err := domcol.New(name, dimensions, metric)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidSchema, err)
	}

	existing, err := s.cols.Get(ctx, name)
	switch {
	case err == nil:
		return sameOrConflict(existing, col)
	case !errors.Is(err, domain.ErrNotFound):
		return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, err)
	}

	if err := s.cols.Create(ctx, col); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// lost a race with a concurrent create
			existing, getErr := s.cols.Get(ctx, name)
			if getErr != nil {
				return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, getErr)
			}
			return sameOrConflict(existing, col)
		}
		return domcol.Collection{}, fmt.Errorf("create collection %s: %w", name, err)
	}

	return col, nil
}

func sameOrConflict(existing, requested domcol.Collection) (domcol.Collection, error) {
	if existing.SameConfig(requested) {
		return existing, nil
	}
	return domcol.Collection{}, fmt.Errorf(
		"collection %s exists with dimensions=%d metric=%s: %w",
		existing.Name(), existing.Dimensions(), existing.Metric(), domain.ErrAlreadyExists,
	)
}

// Get returns a collection by name.
func (s *Service) Get(ctx context.Context, name string) (domcol.Collection, error) {
	col, err := s.cols.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection %s: %w", name, err)
	}
	return col, nil
}

// Delete removes a collection and all its points.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.cols.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// Count returns the number of points stored in a collection.
func (s *Service) Count(ctx context.Context, name string) (int, error) {
	if _, err := s.cols.Get(ctx, name); err != nil {
		return 0, fmt.Errorf("get collection %s: %w", name, err)
	}
	n, err := s.points.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("count points %s: %w: %w", name, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// GetPoint returns a stored point. A missing collection yields ErrNotFound,
// a missing point in an existing one ErrPointNotFound.
func (s *Service) GetPoint(ctx context.Context, name string, id uint64) (point.Point, error) {
	if _, err := s.cols.Get(ctx, name); err != nil {
		return point.Point{}, fmt.Errorf("get collection %s: %w", name, err)
	}
	p, err := s.points.GetPoint(ctx, name, id)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, domain.ErrNotFound):
		return point.Point{}, fmt.Errorf("%s/%d: %w", name, id, domain.ErrPointNotFound)
	default:
		return point.Point{}, fmt.Errorf("get point %s/%d: %w", name, id, storeErr(err))
	}
}

// Upsert validates every vector against the collection dimensionality, collapses
// duplicate IDs to their last occurrence and writes the batch atomically.
func (s *Service) Upsert(ctx context.Context, name string, points []point.Point) error {
	col, err := s.cols.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", name, err)
	}

	for _, p := range points {
		if len(p.Vector()) != col.Dimensions() {
			return fmt.Errorf("point %d: %w", p.ID(), domain.NewDimensionMismatch(col.Dimensions(), len(p.Vector())))
		}
	}

	points = point.Dedup(points)
	if len(points) == 0 {
		return nil
	}

	if err := s.points.Upsert(ctx, name, points); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w: %w", len(points), name, domain.ErrWriteFailure, err)
	}
	return nil
}

// Query returns at most k results ordered by descending score.
func (s *Service) Query(ctx context.Context, name string, vector []float32, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidArgument)
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	col, err := s.cols.Get(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get collection %s: %w", name, err)
		}
		return nil, fmt.Errorf("get collection %s: %w", name, storeErr(err))
	}

	if len(vector) != col.Dimensions() {
		return nil, fmt.Errorf("query %s: %w", name, domain.NewDimensionMismatch(col.Dimensions(), len(vector)))
	}

	results, err := s.searcher.SearchKNN(ctx, col, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, storeErr(err))
	}

	return result.TopK(results, k), nil
}

// storeErr classifies a backend failure as a timeout or an outage.
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
