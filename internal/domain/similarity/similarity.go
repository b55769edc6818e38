// Package similarity scores vector pairs with the same "higher is better"
// convention the store backends normalize to.
package similarity

import (
	"math"

	"github.com/kailas-cloud/vecrag/internal/domain/collection"
)

// Cosine returns the cosine similarity in [-1, 1]. Zero vectors and length
// mismatches score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Dot returns the raw inner product.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Euclidean returns 1/(1+d) where d is the L2 distance, so identical vectors score 1.
func Euclidean(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return FromL2Distance(math.Sqrt(sum))
}

// FromL2Distance maps a euclidean distance onto (0, 1].
func FromL2Distance(d float64) float64 {
	return 1 / (1 + d)
}

// Score dispatches on the collection metric.
func Score(m collection.Metric, a, b []float32) float64 {
	switch m {
	case collection.Dot:
		return Dot(a, b)
	case collection.Euclidean:
		return Euclidean(a, b)
	default:
		return Cosine(a, b)
	}
}
