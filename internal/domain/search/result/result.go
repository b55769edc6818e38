package result

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/vecrag/internal/domain/point"
)

// Result is a single scored hit. Higher score means more similar for every metric.
type Result struct {
	id      uint64
	score   float64
	payload map[string]any
}

// New creates a search result.
func New(id uint64, score float64, payload map[string]any) Result {
	return Result{id: id, score: score, payload: payload}
}

// ID returns the point identifier.
func (r Result) ID() uint64 { return r.id }

// Score returns the normalized similarity.
func (r Result) Score() float64 { return r.score }

// Payload returns the stored metadata.
func (r Result) Payload() map[string]any { return r.payload }

// Content returns the page_content text of the hit.
func (r Result) Content() string { return point.Content(r.payload) }

// SortByScore orders results by descending score. Ties keep their input order.
func SortByScore(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.score, a.score)
	})
}

// TopK sorts results and truncates them to at most k entries.
func TopK(results []Result, k int) []Result {
	SortByScore(results)
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Contents extracts page_content from each result, preserving order.
func Contents(results []Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].Content()
	}
	return out
}
