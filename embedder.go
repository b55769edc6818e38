package vecrag

import "github.com/kailas-cloud/vecrag/internal/domain"

// Embedder converts text to a vector. If it also implements BatchEmbedder,
// indexing sends all documents in a single call.
type Embedder = domain.Embedder

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder = domain.BatchEmbedder

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult = domain.EmbeddingResult

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult = domain.BatchEmbeddingResult

// Generator turns a rendered prompt into a completion.
type Generator = domain.Generator

// GenerationResult carries the completion text and token counts.
type GenerationResult = domain.GenerationResult
