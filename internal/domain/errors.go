package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrPointNotFound signals a missing point in an existing collection. It matches ErrNotFound.
	ErrPointNotFound = fmt.Errorf("point %w", ErrNotFound)
	// ErrAlreadyExists signals a resource that exists with a different configuration.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals an invalid collection definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidArgument signals a malformed request parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDimensionMismatch signals a vector whose length differs from the collection dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrWriteFailure signals that the store rejected a write.
	ErrWriteFailure = errors.New("write failure")
	// ErrStoreTimeout signals that a store query exceeded its deadline.
	ErrStoreTimeout = errors.New("store timeout")
	// ErrStoreUnavailable signals that the store could not serve a query.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrModelUnavailable signals that the embedding model cannot be reached or loaded.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrEncoding signals that the embedding model rejected the input.
	ErrEncoding = errors.New("encoding error")

	// ErrMissingVariable signals a template placeholder without a value.
	ErrMissingVariable = errors.New("missing template variable")

	// ErrGenerationUnavailable signals that the language model endpoint failed.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrGenerationTimeout signals that the language model did not answer in time.
	ErrGenerationTimeout = errors.New("generation timeout")
)

// DimensionMismatchError carries both lengths for diagnostics.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch.Error(), e.Expected, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(expected, got int) error {
	return &DimensionMismatchError{Expected: expected, Got: got}
}

// MissingVariableError names the template placeholder that had no value.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingVariable.Error(), e.Name)
}

func (e *MissingVariableError) Unwrap() error { return ErrMissingVariable }
