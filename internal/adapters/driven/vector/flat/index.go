// Package flat provides an exact, in-memory vector index.
//
// Every search scans all vectors, which is exact and fast enough for
// knowledge bases of tens of thousands of chunks. The index is immutable once
// built: a new index generation replaces it wholesale.
package flat

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores vectors row-major in a single slice.
type Index struct {
	metric    domain.Metric
	dimension int
	ids       []string
	vectors   []float32
}

// New builds an index from records. For the inner-product metric vectors are
// L2-normalised so scores are cosine similarities.
func New(dimension int, metric domain.Metric, records []domain.EmbeddingRecord) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidInput, metric)
	}

	idx := &Index{
		metric:    metric,
		dimension: dimension,
		ids:       make([]string, 0, len(records)),
		vectors:   make([]float32, 0, len(records)*dimension),
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if len(r.Vector) != dimension {
			return nil, fmt.Errorf("%w: chunk %s has %d values, index has %d",
				domain.ErrDimensionMismatch, r.ChunkID, len(r.Vector), dimension)
		}
		if _, dup := seen[r.ChunkID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk %s", domain.ErrInvalidInput, r.ChunkID)
		}
		seen[r.ChunkID] = struct{}{}

		vec := r.Vector
		if metric == domain.MetricInnerProduct {
			vec = domain.NormalizeVector(vec)
		}
		idx.ids = append(idx.ids, r.ChunkID)
		idx.vectors = append(idx.vectors, vec...)
	}
	return idx, nil
}

// Build is New behind the driven.VectorIndexFactory signature.
func Build(dimension int, metric domain.Metric, records []domain.EmbeddingRecord) (driven.VectorIndex, error) {
	idx, err := New(dimension, metric, records)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Search returns up to k hits, best first. Ties keep insertion order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 || len(idx.ids) == 0 {
		return []driven.VectorHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if idx.metric == domain.MetricInnerProduct {
		query = domain.NormalizeVector(query)
	}

	hits := make([]driven.VectorHit, len(idx.ids))
	for i, id := range idx.ids {
		row := idx.vectors[i*idx.dimension : (i+1)*idx.dimension]
		hits[i] = driven.VectorHit{ChunkID: id, Score: idx.score(query, row)}
	}

	better := idx.metric.HigherIsBetter()
	slices.SortStableFunc(hits, func(a, b driven.VectorHit) int {
		sa, sb := rank(a.Score, better), rank(b.Score, better)
		return cmp.Compare(sb, sa)
	})

	return hits[:min(k, len(hits))], nil
}

func (idx *Index) score(q, row []float32) float64 {
	var sum float64
	if idx.metric == domain.MetricL2 {
		for i := range q {
			d := float64(q[i]) - float64(row[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	for i := range q {
		sum += float64(q[i]) * float64(row[i])
	}
	return sum
}

// rank maps a score to "larger is better", sending NaN to the bottom.
func rank(score float64, higherIsBetter bool) float64 {
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	if higherIsBetter {
		return score
	}
	return -score
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Dimension returns the vector size.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Metric returns the scoring metric.
func (idx *Index) Metric() domain.Metric {
	return idx.metric
}
