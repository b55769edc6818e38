package db

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// VectorAlias is the name KNN queries use for a collection's vector field (@vector).
	VectorAlias = "vector"
	// ScoreField is the pseudo-field FT.SEARCH adds to each KNN hit with its distance.
	ScoreField = "__vector_score"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
	// Distance is the metric the index was created with; it selects how
	// __vector_score is turned into a higher-is-better score.
	Distance DistanceMetric
}

func (q *KNNQuery) Validate() error {
	switch {
	case q.IndexName == "":
		return errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return errors.New("knn: vector is required")
	case q.K <= 0:
		return fmt.Errorf("knn: k must be positive, got %d", q.K)
	}
	return nil
}

// Args renders the FT.SEARCH arguments after the command name. With ordered
// set, the server aliases and sorts by ScoreField; valkey-search rejects both,
// so its callers pass false and sort the reply themselves.
func (q *KNNQuery) Args(ordered bool) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	knn := fmt.Sprintf("*=>[KNN %d @%s $BLOB]", q.K, VectorAlias)
	if ordered {
		knn = fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, VectorAlias, ScoreField)
	}
	args := []string{q.IndexName, knn}

	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1), ScoreField)
		args = append(args, q.ReturnFields...)
	}
	if ordered {
		args = append(args, "SORTBY", ScoreField, "ASC")
	}
	return append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", EncodeVector(q.Vector),
		"DIALECT", "2",
	), nil
}

// ScoreFromDistance turns a ScoreField distance into a higher-is-better score.
// COSINE and IP report 1-x; L2 reports the squared distance.
func ScoreFromDistance(metric DistanceMetric, d float64) float64 {
	if metric == DistanceL2 {
		return 1 / (1 + math.Sqrt(max(0, d)))
	}
	return 1 - d
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
