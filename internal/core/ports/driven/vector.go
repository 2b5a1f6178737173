package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// VectorIndex provides exact similarity search over one index generation.
// An index is immutable once built, so concurrent searches need no locking.
type VectorIndex interface {
	// Search returns up to k nearest neighbours of the query vector, best first.
	// Equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector size accepted by Search.
	Dimension() int

	// Metric returns the scoring metric.
	Metric() domain.Metric
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the raw metric value: similarity for inner product, distance for L2.
	Score float64
}

// VectorIndexFactory builds an immutable index over one generation's records.
type VectorIndexFactory func(dimension int, metric domain.Metric, records []domain.EmbeddingRecord) (VectorIndex, error)
