package collection

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Metric is the similarity function a collection is indexed with.
type Metric string

const (
	// Cosine compares direction only.
	Cosine Metric = "cosine"
	// Dot is the raw inner product.
	Dot Metric = "dot"
	// Euclidean is L2 distance, reported as 1/(1+d).
	Euclidean Metric = "euclidean"
)

// IsValid checks if the metric is supported.
func (m Metric) IsValid() bool {
	return m == Cosine || m == Dot || m == Euclidean
}

// ParseMetric accepts the canonical names plus common aliases (ip, l2).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return Cosine, nil
	case "dot", "ip", "inner_product":
		return Dot, nil
	case "euclidean", "l2", "euclid":
		return Euclidean, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// Collection is the vector collection aggregate (immutable value object).
type Collection struct {
	name       string
	dimensions int
	metric     Metric
	createdAt  int64
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Dimensions: > 0. Metric defaults to cosine.
func New(name string, dimensions int, metric Metric) (Collection, error) {
	if metric == "" {
		metric = Cosine
	}
	if !metric.IsValid() {
		return Collection{}, fmt.Errorf("invalid distance metric: %q", metric)
	}
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if dimensions <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}

	return Collection{
		name:       name,
		dimensions: dimensions,
		metric:     metric,
		createdAt:  time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, dimensions int, metric Metric, createdAt int64) Collection {
	if metric == "" {
		metric = Cosine
	}
	return Collection{
		name:       name,
		dimensions: dimensions,
		metric:     metric,
		createdAt:  createdAt,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Dimensions returns the fixed vector length D.
func (c Collection) Dimensions() int { return c.dimensions }

// Metric returns the distance metric.
func (c Collection) Metric() Metric { return c.metric }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// SameConfig reports whether two collections share name, dimensions and metric.
// Creation time is not part of the configuration.
func (c Collection) SameConfig(other Collection) bool {
	return c.name == other.name && c.dimensions == other.dimensions && c.metric == other.metric
}
