package domain

// VectorConfig holds vectorization defaults used when a collection is created implicitly.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the defaults for paraphrase-multilingual-MiniLM-L12-v2.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
		Dimensions:     384,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}
