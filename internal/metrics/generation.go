package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// GenerationRequestsTotal has labels model and status (ok, timeout, unavailable).
	GenerationRequestsTotal = counter("generation_requests_total",
		"Language model calls", "model", "status")
	GenerationRequestDuration = histogram("generation_request_duration_seconds",
		"Language model call latency",
		[]float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}, "model")
	// GenerationTokensTotal has labels model and type (prompt, completion).
	GenerationTokensTotal = counter("generation_tokens_total",
		"Tokens billed by the language model", "model", "type")

	RetrievalDuration = histogram("retrieval_duration_seconds",
		"Query embedding plus vector search latency",
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}, "collection", "status")
	RetrievalHits = histogram("retrieval_hits",
		"Results returned per retrieval",
		prometheus.LinearBuckets(0, 1, 11), "collection")
)

var (
	generation = group{collectors: func() []prometheus.Collector {
		return []prometheus.Collector{GenerationRequestsTotal, GenerationRequestDuration, GenerationTokensTotal}
	}}
	retrieval = group{collectors: func() []prometheus.Collector {
		return []prometheus.Collector{RetrievalDuration, RetrievalHits}
	}}
)

func RegisterGenerationMetrics() { generation.register() }

func RegisterRetrievalMetrics() { retrieval.register() }
