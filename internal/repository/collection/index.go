package collection

import (
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/repository/point"
)

// DistanceFor maps a collection metric to the FT DISTANCE_METRIC.
func DistanceFor(m domcol.Metric) db.DistanceMetric {
	switch m {
	case domcol.Dot:
		return db.DistanceIP
	case domcol.Euclidean:
		return db.DistanceL2
	default:
		return db.DistanceCosine
	}
}

// buildIndex describes the HNSW index over a collection's point hashes.
func buildIndex(col domcol.Collection, hnsw HNSWConfig) (*db.VectorIndex, error) {
	def := &db.VectorIndex{
		Name:        domain.IndexName(col.Name()),
		Prefix:      domain.PointPrefix(col.Name()),
		IDField:     point.FieldID,
		Field:       point.FieldVector,
		Alias:       db.VectorAlias,
		Dim:         col.Dimensions(),
		Distance:    DistanceFor(col.Metric()),
		Algorithm:   db.VectorHNSW,
		M:           hnsw.M,
		EFConstruct: hnsw.EFConstruct,
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %s: %w", col.Name(), err)
	}
	return def, nil
}
