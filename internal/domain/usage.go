package domain

import "context"

type usageKey struct{}

// Usage collects token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// services write after each model call; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens  int
	GenerationTokens int
	Used             bool // true if a model was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens consumed by the embedding model.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Used = true
	}
}

// AddGenerationTokens records tokens consumed by the language model.
func (u *Usage) AddGenerationTokens(n int) {
	if u != nil {
		u.GenerationTokens += n
		u.Used = true
	}
}
