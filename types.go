package vecrag

import (
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/usecase/health"
	"github.com/kailas-cloud/vecrag/internal/usecase/index"
	"github.com/kailas-cloud/vecrag/internal/usecase/rag"
)

// Document is one unit of knowledge to index.
type Document = domain.Document

// IndexReport summarizes one indexing call.
type IndexReport = index.Report

// HealthReport carries per-component health.
type HealthReport = health.Report

// Hit is a retrieved document with its similarity score (higher is closer).
type Hit struct {
	ID      uint64
	Score   float64
	Content string
}

// Trace exposes every stage of one question: retrieved hits, the context
// block, the rendered prompt and the answer.
type Trace struct {
	ID       string
	Question string
	Hits     []Hit
	Context  string
	Prompt   string
	Answer   string
}

func toHits(rs []result.Result) []Hit {
	hits := make([]Hit, len(rs))
	for i, r := range rs {
		hits[i] = Hit{ID: r.ID(), Score: r.Score(), Content: r.Content()}
	}
	return hits
}

func toTrace(t rag.Trace) Trace {
	return Trace{
		ID:       t.ID,
		Question: t.Question,
		Hits:     toHits(t.Hits),
		Context:  t.Context,
		Prompt:   t.Prompt,
		Answer:   t.Answer,
	}
}
