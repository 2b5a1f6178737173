package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates no index generation is loaded.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMissingSalt indicates no pseudonymisation salt was supplied.
	ErrMissingSalt = errors.New("pseudonymisation salt not configured")

	// ErrNoGeneration indicates the registry holds no committed index generation.
	ErrNoGeneration = errors.New("no index generation")
)

// ConfigurationError reports an invalid or missing configuration value.
// It is raised at start-up and aborts pipeline initialisation.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError builds a ConfigurationError with a formatted cause.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// DocumentProcessingError reports a single document that could not be read or decoded.
// The batch skips the document and continues.
type DocumentProcessingError struct {
	SourcePath string
	Err        error
}

func (e *DocumentProcessingError) Error() string {
	return fmt.Sprintf("document %s: %v", e.SourcePath, e.Err)
}

func (e *DocumentProcessingError) Unwrap() error {
	return e.Err
}

// EmbeddingBackendError reports a failed call to the embedding collaborator.
// It aborts the current index build; nothing is committed.
type EmbeddingBackendError struct {
	// Batch is the zero-based batch number that failed.
	Batch int
	Err   error
}

func (e *EmbeddingBackendError) Error() string {
	return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
}

func (e *EmbeddingBackendError) Unwrap() error {
	return e.Err
}
