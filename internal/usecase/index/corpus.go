package index

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// corpusFile is the on-disk seed format:
//
//	documents:
//	  - id: 1
//	    text: "..."
type corpusFile struct {
	Documents []domain.Document `yaml:"documents"`
}

// LoadCorpus parses a YAML seed corpus.
func LoadCorpus(r io.Reader) ([]domain.Document, error) {
	var f corpusFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	for i, d := range f.Documents {
		if d.Text == "" {
			return nil, fmt.Errorf("corpus document #%d (id %d) has empty text", i, d.ID)
		}
	}
	return f.Documents, nil
}

// LoadCorpusFile reads a YAML seed corpus from disk.
func LoadCorpusFile(path string) ([]domain.Document, error) {
	f, err := os.Open(path) //nolint:gosec // path from trusted config
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return LoadCorpus(f)
}
