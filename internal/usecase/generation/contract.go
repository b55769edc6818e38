package generation

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Client is the language model transport.
type Client interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
