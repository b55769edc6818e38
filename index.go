package vecrag

import (
	"context"
	"fmt"
)

// TypedIndex indexes and retrieves structs tagged with `vecrag:"id"` and
// `vecrag:"text"` in one collection.
type TypedIndex[T any] struct {
	name   string
	client *Client
	meta   *schemaMeta
}

// NewIndex creates a typed index handle for the given collection name.
// The schema is parsed once and cached.
func NewIndex[T any](client *Client, name string) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	return &TypedIndex[T]{name: name, client: client, meta: meta}, nil
}

// Name returns the collection name.
func (idx *TypedIndex[T]) Name() string { return idx.name }

// Add embeds and upserts items in one batch.
func (idx *TypedIndex[T]) Add(ctx context.Context, items ...T) (IndexReport, error) {
	docs := make([]Document, len(items))
	for i, item := range items {
		doc, err := idx.meta.toDocument(item)
		if err != nil {
			return IndexReport{}, fmt.Errorf("item %d: %w", i, err)
		}
		docs[i] = doc
	}
	return idx.client.IndexInto(ctx, idx.name, docs)
}

// Retrieve returns up to k hits closest to query.
func (idx *TypedIndex[T]) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	return idx.client.RetrieveFrom(ctx, idx.name, query, k)
}
