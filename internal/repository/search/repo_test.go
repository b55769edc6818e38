package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecrag/internal/db"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
)

func TestSearchKNN_QueryShape(t *testing.T) {
	var got *db.KNNQuery
	ms := &mockStore{searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}}

	col := domcol.Reconstruct("notes", 3, domcol.Dot, 0)
	if _, err := New(ms).SearchKNN(context.Background(), col, []float32{1, 2, 3}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != "vecrag:notes:idx" {
		t.Errorf("IndexName = %s", got.IndexName)
	}
	if got.K != 3 || got.Distance != db.DistanceIP {
		t.Errorf("K=%d Distance=%s", got.K, got.Distance)
	}
	if len(got.ReturnFields) != 2 {
		t.Errorf("ReturnFields = %v", got.ReturnFields)
	}
}

func TestSearchKNN_ParsesAndOrders(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
			{Key: "vecrag:{notes}:2", Score: 0.4, Fields: map[string]string{"__id": "2", "__payload": `{"page_content":"b"}`}},
			{Key: "vecrag:{notes}:1", Score: 0.9, Fields: map[string]string{"__id": "1", "__payload": `{"page_content":"a"}`}},
			{Key: "vecrag:{notes}:3", Score: 0.6, Fields: map[string]string{"__payload": `{"page_content":"c"}`}},
		}}, nil
	}}

	col := domcol.Reconstruct("notes", 2, domcol.Cosine, 0)
	res, err := New(ms).SearchKNN(context.Background(), col, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	wantIDs := []uint64{1, 3, 2}
	for i, r := range res {
		if r.ID() != wantIDs[i] {
			t.Errorf("res[%d].ID() = %d, want %d", i, r.ID(), wantIDs[i])
		}
	}
	if res[0].Content() != "a" {
		t.Errorf("Content() = %q", res[0].Content())
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	col := domcol.Reconstruct("notes", 2, domcol.Cosine, 0)
	res, err := New(&mockStore{}).SearchKNN(context.Background(), col, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected no results, got %d", len(res))
	}
}

func TestSearchKNN_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	ms := &mockStore{searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, storeErr
	}}

	col := domcol.Reconstruct("notes", 2, domcol.Cosine, 0)
	_, err := New(ms).SearchKNN(context.Background(), col, []float32{1, 0}, 3)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSearchKNN_CorruptPayload(t *testing.T) {
	ms := &mockStore{searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "vecrag:{notes}:1", Score: 1, Fields: map[string]string{"__payload": "{oops"}},
		}}, nil
	}}

	col := domcol.Reconstruct("notes", 2, domcol.Cosine, 0)
	if _, err := New(ms).SearchKNN(context.Background(), col, []float32{1, 0}, 1); err == nil {
		t.Fatal("expected error for corrupt payload")
	}
}
