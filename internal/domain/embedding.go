package domain

import (
	"context"
	"fmt"
)

// Embedder turns one text into a vector. Every layer of the embedding chain
// (provider, cache, metrics, instruction prefix) implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder is implemented by embedders that can vectorize many texts per call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector plus the tokens the provider billed for it.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds vectors in input order with summed token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

func (r *BatchEmbeddingResult) add(res EmbeddingResult) {
	r.Embeddings = append(r.Embeddings, res.Embedding)
	r.PromptTokens += res.PromptTokens
	r.TotalTokens += res.TotalTokens
}

// EmbedBatch prefers the native batch API of e and otherwise embeds texts one
// by one. A provider that returns a different number of vectors than texts
// yields ErrEncoding.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	be, ok := e.(BatchEmbedder)
	if !ok {
		return EmbedEach(ctx, e, texts)
	}
	res, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return BatchEmbeddingResult{}, err
	}
	if got := len(res.Embeddings); got != len(texts) {
		return BatchEmbeddingResult{}, fmt.Errorf("%w: %d vectors for %d texts", ErrEncoding, got, len(texts))
	}
	return res, nil
}

// EmbedEach calls Embed sequentially and stops at the first failure.
func EmbedEach(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("text %d of %d: %w", i+1, len(texts), err)
		}
		out.add(res)
	}
	return out, nil
}

// InstructionEmbedder prefixes every text before embedding. Asymmetric models
// such as e5 are trained with "query: " on questions and "passage: " on documents.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return e.inner.Embed(ctx, e.instruction+text)
}

func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}
	return EmbedBatch(ctx, e.inner, prefixed)
}
