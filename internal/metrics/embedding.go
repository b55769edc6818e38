package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// EmbeddingRequestsTotal has labels model and status (ok, error).
	EmbeddingRequestsTotal = counter("embedding_requests_total",
		"Embedding provider calls", "model", "status")
	// EmbeddingRequestDuration has labels model and kind (single, batch).
	EmbeddingRequestDuration = histogram("embedding_request_duration_seconds",
		"Embedding provider call latency",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, "model", "kind")
	EmbeddingTokensTotal = counter("embedding_tokens_total",
		"Tokens billed by the embedding provider", "model")
	EmbeddingErrorsTotal = counter("embedding_errors_total",
		"Embedding failures by error class", "model", "error_type")
	// EmbeddingCacheTotal has one label, result (hit, miss).
	EmbeddingCacheTotal = counter("embedding_cache_total",
		"Embedding cache lookups", "result")
)

var embedding = group{collectors: func() []prometheus.Collector {
	return []prometheus.Collector{
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	}
}}

// RegisterEmbeddingMetrics puts the embedding collectors on the default registry.
func RegisterEmbeddingMetrics() { embedding.register() }
