package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/repository/memory"
)

// --- Mocks ---

type mockCollections struct {
	getResult   domcol.Collection
	getErr      error
	createErr   error
	deleteErr   error
	createCalls int
}

func (m *mockCollections) Create(_ context.Context, _ domcol.Collection) error {
	m.createCalls++
	return m.createErr
}

func (m *mockCollections) Get(_ context.Context, _ string) (domcol.Collection, error) {
	return m.getResult, m.getErr
}

func (m *mockCollections) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

type mockPoints struct {
	upserted [][]point.Point
	upsertFn func(ctx context.Context, name string, points []point.Point) error
	countErr error
	getErr   error
}

func (m *mockPoints) Upsert(ctx context.Context, name string, points []point.Point) error {
	m.upserted = append(m.upserted, points)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, name, points)
	}
	return nil
}

func (m *mockPoints) GetPoint(_ context.Context, _ string, id uint64) (point.Point, error) {
	if m.getErr != nil {
		return point.Point{}, m.getErr
	}
	return point.Reconstruct(id, nil, nil), nil
}

func (m *mockPoints) Count(_ context.Context, _ string) (int, error) {
	return 0, m.countErr
}

type mockSearcher struct {
	searchFn func(ctx context.Context, col domcol.Collection, vector []float32, k int) ([]result.Result, error)
}

func (m *mockSearcher) SearchKNN(ctx context.Context, col domcol.Collection, vector []float32, k int) ([]result.Result, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, col, vector, k)
	}
	return nil, nil
}

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	mem := memory.New()
	return New(mem, mem, mem)
}

func mustPoint(t *testing.T, id uint64, vec []float32, text string) point.Point {
	t.Helper()
	p, err := point.FromText(id, vec, text)
	if err != nil {
		t.Fatalf("point.FromText: %v", err)
	}
	return p
}

// --- Create ---

func TestCreate_IdenticalConfigIsNoop(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "notes", 384, domcol.Cosine)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(ctx, "notes", 384, domcol.Cosine)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.CreatedAt() != first.CreatedAt() {
		t.Error("expected the stored collection to be returned")
	}
}

func TestCreate_DifferentConfig(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "notes", 384, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, "notes", 768, domcol.Cosine)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	_, err = svc.Create(ctx, "notes", 384, domcol.Euclidean)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for metric change, got %v", err)
	}
}

func TestCreate_InvalidSchema(t *testing.T) {
	svc := newMemoryService(t)
	tests := []struct {
		name string
		dims int
	}{
		{"", 3},
		{"bad name!", 3},
		{"notes", 0},
	}
	for _, tc := range tests {
		_, err := svc.Create(context.Background(), tc.name, tc.dims, domcol.Cosine)
		if !errors.Is(err, domain.ErrInvalidSchema) {
			t.Errorf("Create(%q, %d): expected ErrInvalidSchema, got %v", tc.name, tc.dims, err)
		}
	}
}

func TestCreate_RaceResolvesToExisting(t *testing.T) {
	stored := domcol.Reconstruct("notes", 3, domcol.Cosine, 1)

	// first Get misses, Create loses the race, second Get sees the winner
	calls := 0
	cols := &raceCollections{
		mockCollections: &mockCollections{createErr: domain.ErrAlreadyExists},
		onGet: func() (domcol.Collection, error) {
			calls++
			if calls == 1 {
				return domcol.Collection{}, domain.ErrNotFound
			}
			return stored, nil
		},
	}
	svc := New(cols, &mockPoints{}, &mockSearcher{})

	col, err := svc.Create(context.Background(), "notes", 3, domcol.Cosine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.CreatedAt() != 1 {
		t.Errorf("expected the concurrently created collection")
	}
}

type raceCollections struct {
	*mockCollections
	onGet func() (domcol.Collection, error)
}

func (r *raceCollections) Get(_ context.Context, _ string) (domcol.Collection, error) {
	return r.onGet()
}

// --- Exists ---

func TestExists(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "notes")
	if err != nil || ok {
		t.Fatalf("Exists() before create = %v, %v", ok, err)
	}
	if _, err := svc.Create(ctx, "notes", 2, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	ok, err = svc.Exists(ctx, "notes")
	if err != nil || !ok {
		t.Fatalf("Exists() after create = %v, %v", ok, err)
	}
}

func TestExists_BackendError(t *testing.T) {
	svc := New(&mockCollections{getErr: errors.New("conn refused")}, &mockPoints{}, &mockSearcher{})
	_, err := svc.Exists(context.Background(), "notes")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// --- Upsert ---

func TestUpsert_DimensionMismatch(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 3, domcol.Cosine, 0)}
	pts := &mockPoints{}
	svc := New(cols, pts, &mockSearcher{})

	err := svc.Upsert(context.Background(), "notes", []point.Point{
		mustPoint(t, 1, []float32{1, 2, 3}, "ok"),
		mustPoint(t, 2, []float32{1, 2}, "short"),
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) || dm.Expected != 3 || dm.Got != 2 {
		t.Errorf("expected mismatch 3/2, got %v", err)
	}
	if len(pts.upserted) != 0 {
		t.Error("nothing must be written when any vector is invalid")
	}
}

func TestUpsert_CollectionNotFound(t *testing.T) {
	svc := newMemoryService(t)
	err := svc.Upsert(context.Background(), "missing", []point.Point{mustPoint(t, 1, []float32{1}, "x")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsert_DedupLastWins(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	pts := &mockPoints{}
	svc := New(cols, pts, &mockSearcher{})

	err := svc.Upsert(context.Background(), "notes", []point.Point{
		mustPoint(t, 1, []float32{1}, "first"),
		mustPoint(t, 2, []float32{1}, "other"),
		mustPoint(t, 1, []float32{1}, "last"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch := pts.upserted[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 points after dedup, got %d", len(batch))
	}
	if batch[0].ID() != 1 || batch[0].Content() != "last" {
		t.Errorf("expected id 1 with last payload, got %d %q", batch[0].ID(), batch[0].Content())
	}
}

func TestUpsert_WriteFailure(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	pts := &mockPoints{upsertFn: func(_ context.Context, _ string, _ []point.Point) error {
		return errors.New("EXECABORT")
	}}
	svc := New(cols, pts, &mockSearcher{})

	err := svc.Upsert(context.Background(), "notes", []point.Point{mustPoint(t, 1, []float32{1}, "x")})
	if !errors.Is(err, domain.ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
}

func TestUpsert_IdempotentCount(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "notes", 2, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	batch := []point.Point{
		mustPoint(t, 1, []float32{1, 0}, "a"),
		mustPoint(t, 2, []float32{0, 1}, "b"),
	}

	for range 2 {
		if err := svc.Upsert(ctx, "notes", batch); err != nil {
			t.Fatal(err)
		}
	}
	n, err := svc.Count(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count() = %d after double upsert, want 2", n)
	}
}

// --- Query ---

func TestQuery_InvalidK(t *testing.T) {
	svc := newMemoryService(t)
	for _, k := range []int{0, -1} {
		_, err := svc.Query(context.Background(), "notes", []float32{1}, k)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("k=%d: expected ErrInvalidArgument, got %v", k, err)
		}
	}
}

func TestQuery_NotFound(t *testing.T) {
	svc := newMemoryService(t)
	_, err := svc.Query(context.Background(), "missing", []float32{1}, 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "notes", 3, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Query(ctx, "notes", []float32{1, 0}, 3)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQuery_SelfRetrievalAndOrdering(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "notes", 3, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	vecs := map[uint64][]float32{
		1: {1, 0, 0},
		2: {0.8, 0.6, 0},
		3: {0, 1, 0},
		4: {0, 0, 1},
	}
	var batch []point.Point
	for id, v := range vecs {
		batch = append(batch, mustPoint(t, id, v, "doc"))
	}
	if err := svc.Upsert(ctx, "notes", batch); err != nil {
		t.Fatal(err)
	}

	for id, v := range vecs {
		res, err := svc.Query(ctx, "notes", v, 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) != 3 {
			t.Fatalf("expected 3 results, got %d", len(res))
		}
		if res[0].ID() != id {
			t.Errorf("self-retrieval: query for %d returned %d first", id, res[0].ID())
		}
		for i := 1; i < len(res); i++ {
			if res[i].Score() > res[i-1].Score() {
				t.Errorf("scores not non-increasing: %v > %v", res[i].Score(), res[i-1].Score())
			}
		}
	}
}

func TestQuery_TruncatesToK(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	searcher := &mockSearcher{searchFn: func(_ context.Context, _ domcol.Collection, _ []float32, _ int) ([]result.Result, error) {
		return []result.Result{
			result.New(1, 0.1, nil),
			result.New(2, 0.9, nil),
			result.New(3, 0.5, nil),
		}, nil
	}}
	svc := New(cols, &mockPoints{}, searcher)

	res, err := svc.Query(context.Background(), "notes", []float32{1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].ID() != 2 || res[1].ID() != 3 {
		t.Errorf("unexpected results: %+v", res)
	}
}

func TestQuery_Timeout(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	searcher := &mockSearcher{searchFn: func(ctx context.Context, _ domcol.Collection, _ []float32, _ int) ([]result.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := New(cols, &mockPoints{}, searcher).WithQueryTimeout(10 * time.Millisecond)

	_, err := svc.Query(context.Background(), "notes", []float32{1}, 1)
	if !errors.Is(err, domain.ErrStoreTimeout) {
		t.Fatalf("expected ErrStoreTimeout, got %v", err)
	}
}

func TestQuery_Unavailable(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	searcher := &mockSearcher{searchFn: func(_ context.Context, _ domcol.Collection, _ []float32, _ int) ([]result.Result, error) {
		return nil, errors.New("connection refused")
	}}
	svc := New(cols, &mockPoints{}, searcher)

	_, err := svc.Query(context.Background(), "notes", []float32{1}, 1)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreTimeout) {
		t.Fatal("unavailability must not be reported as a timeout")
	}
}

// --- Delete / Count ---

func TestDeleteAndCount(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "notes", 1, domcol.Dot); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "notes"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Count(ctx, "notes"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, "notes"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- GetPoint ---

func TestGetPoint(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "notes", 2, domcol.Cosine); err != nil {
		t.Fatal(err)
	}
	if err := svc.Upsert(ctx, "notes", []point.Point{mustPoint(t, 5, []float32{0.6, 0.8}, "hello")}); err != nil {
		t.Fatal(err)
	}

	p, err := svc.GetPoint(ctx, "notes", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Content() != "hello" || len(p.Vector()) != 2 {
		t.Errorf("unexpected point: id=%d content=%q vector=%v", p.ID(), p.Content(), p.Vector())
	}

	_, err = svc.GetPoint(ctx, "notes", 6)
	if !errors.Is(err, domain.ErrPointNotFound) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrPointNotFound, got %v", err)
	}

	_, err = svc.GetPoint(ctx, "missing", 5)
	if !errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPointNotFound) {
		t.Fatalf("expected collection ErrNotFound, got %v", err)
	}
}

func TestGetPoint_BackendError(t *testing.T) {
	cols := &mockCollections{getResult: domcol.Reconstruct("notes", 1, domcol.Cosine, 0)}
	svc := New(cols, &mockPoints{getErr: errors.New("connection reset")}, &mockSearcher{})

	_, err := svc.GetPoint(context.Background(), "notes", 1)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
