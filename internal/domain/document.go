package domain

// Document is a unit of source text to be indexed. Re-indexing the same ID overwrites.
type Document struct {
	ID   uint64 `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}
