package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is squared Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance (1 - dot).
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance (1 - cos).
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for the vector field.
type VectorAlgorithm string

const (
	// VectorHNSW is the approximate graph index.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is exact brute force; small collections only.
	VectorFlat VectorAlgorithm = "FLAT"
)

// VectorIndex is the FT index over one collection's point hashes: a NUMERIC id
// field and a FLOAT32 vector field queried as @Alias.
type VectorIndex struct {
	Name      string
	Prefix    string
	IDField   string
	Field     string
	Alias     string
	Dim       int
	Distance  DistanceMetric
	Algorithm VectorAlgorithm
	// HNSW only; zero keeps the server default.
	M           int
	EFConstruct int
}

// Validate checks the definition before it is sent to the server.
func (v *VectorIndex) Validate() error {
	switch {
	case v.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(v.Name):
		return fmt.Errorf("index name %q contains invalid characters", v.Name)
	case v.Prefix == "":
		return errors.New("key prefix is required")
	case v.Field == "":
		return errors.New("vector field is required")
	case v.Dim <= 0:
		return fmt.Errorf("vector DIM must be positive, got %d", v.Dim)
	case v.IDField != "" && (v.IDField == v.Field || v.IDField == v.Alias):
		return fmt.Errorf("duplicate field name: %s", v.IDField)
	}
	switch v.Distance {
	case "", DistanceCosine, DistanceIP, DistanceL2:
	default:
		return fmt.Errorf("unknown distance metric %q", v.Distance)
	}
	switch v.Algorithm {
	case "", VectorHNSW, VectorFlat:
	default:
		return fmt.Errorf("unknown vector algorithm %q", v.Algorithm)
	}
	return nil
}

// Args renders the FT.CREATE arguments (without the command name).
func (v *VectorIndex) Args() ([]string, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	algo := v.Algorithm
	if algo == "" {
		algo = VectorHNSW
	}
	distance := v.Distance
	if distance == "" {
		distance = DistanceCosine
	}

	args := []string{v.Name, "ON", "HASH", "PREFIX", "1", v.Prefix, "SCHEMA"}
	if v.IDField != "" {
		args = append(args, v.IDField, "NUMERIC")
	}
	args = append(args, v.Field)
	if v.Alias != "" {
		args = append(args, "AS", v.Alias)
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct))
		}
	}
	args = append(args, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	return append(args, attrs...), nil
}

// String resembles the FT.CREATE command, for logs.
func (v *VectorIndex) String() string {
	args, err := v.Args()
	if err != nil {
		return "FT.CREATE <invalid: " + err.Error() + ">"
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != ':' && r != '-' {
			return false
		}
	}
	return true
}
