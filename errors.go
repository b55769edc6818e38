package vecrag

import (
	"errors"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound              = domain.ErrNotFound
	ErrAlreadyExists         = domain.ErrAlreadyExists
	ErrDimensionMismatch     = domain.ErrDimensionMismatch
	ErrModelUnavailable      = domain.ErrModelUnavailable
	ErrEncoding              = domain.ErrEncoding
	ErrMissingVariable       = domain.ErrMissingVariable
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
	ErrGenerationTimeout     = domain.ErrGenerationTimeout
	ErrStoreUnavailable      = domain.ErrStoreUnavailable
	ErrStoreTimeout          = domain.ErrStoreTimeout
)

// ErrNoGenerator is returned by Answer and Trace when no chat model is configured.
var ErrNoGenerator = errors.New("vecrag: generator not configured (use WithGenerator or WithOpenAIGenerator)")
