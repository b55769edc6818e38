package rag

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
)

// Retriever returns scored hits for a query, most similar first.
type Retriever interface {
	RetrieveScored(ctx context.Context, collection, query string, k int) ([]result.Result, error)
}

// Generator turns a rendered prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
