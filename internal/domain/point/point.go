package point

import (
	"fmt"
	"maps"
)

// ContentKey is the payload key under which the source text is stored.
const ContentKey = "page_content"

// Point is a stored vector with its payload (immutable value object).
type Point struct {
	id      uint64
	vector  []float32
	payload map[string]any
}

// New validates and creates a Point. The payload map is copied.
func New(id uint64, vector []float32, payload map[string]any) (Point, error) {
	if len(vector) == 0 {
		return Point{}, fmt.Errorf("point %d: vector is required", id)
	}
	return Point{id: id, vector: vector, payload: maps.Clone(payload)}, nil
}

// FromText creates a Point whose payload holds text under ContentKey.
func FromText(id uint64, vector []float32, text string) (Point, error) {
	return New(id, vector, map[string]any{ContentKey: text})
}

// Reconstruct creates a Point without validation (storage hydration).
func Reconstruct(id uint64, vector []float32, payload map[string]any) Point {
	return Point{id: id, vector: vector, payload: payload}
}

// ID returns the point identifier.
func (p Point) ID() uint64 { return p.id }

// Vector returns the embedding vector.
func (p Point) Vector() []float32 { return p.vector }

// Payload returns the stored metadata.
func (p Point) Payload() map[string]any { return p.payload }

// Content returns the text stored under ContentKey, or "" when absent.
func (p Point) Content() string { return Content(p.payload) }

// Content extracts the text stored under ContentKey from a payload.
func Content(payload map[string]any) string {
	s, _ := payload[ContentKey].(string)
	return s
}

// Dedup collapses points sharing an ID to the last occurrence, keeping first-seen order.
func Dedup(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	pos := make(map[uint64]int, len(points))
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if i, ok := pos[p.id]; ok {
			out[i] = p
			continue
		}
		pos[p.id] = len(out)
		out = append(out, p)
	}
	return out
}
