package domain

import (
	"fmt"
	"time"
)

// Metric selects how the vector index scores candidates.
type Metric string

// Supported index metrics.
const (
	// MetricInnerProduct scores by dot product; vectors are unit-normalised so
	// this is cosine similarity. Higher is better.
	MetricInnerProduct Metric = "inner_product"

	// MetricL2 scores by Euclidean distance. Lower is better.
	MetricL2 Metric = "l2"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricInnerProduct || m == MetricL2
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// HigherIsBetter reports the ordering direction of scores.
func (m Metric) HigherIsBetter() bool {
	return m != MetricL2
}

// EmbeddingRecord pairs a chunk with its vector.
// Records are created at index-build time and never updated in place.
type EmbeddingRecord struct {
	ChunkID  string            `json:"chunk_id"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Generation describes one immutable, fully-built index snapshot.
// Record count always equals chunk count within a generation.
type Generation struct {
	// ID is assigned by the registry; generation N+1 is committed before the
	// current pointer advances to it.
	ID int64 `json:"generation"`

	// BuildID uniquely identifies the build run that produced this generation.
	BuildID string `json:"build_id"`

	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkCount     int       `json:"chunk_count"`
	Metric         Metric    `json:"metric"`
	CreatedAt      time.Time `json:"created_at"`

	// SaltEpoch fingerprints the pseudonymisation key used for the chunks.
	SaltEpoch string `json:"salt_epoch"`

	// SecureSalt is false when the corpus was sanitised with the development key.
	SecureSalt bool `json:"secure_salt"`

	// Policies records the retrieval policies active when the generation was built.
	Policies map[Mode]RetrievalPolicy `json:"policies"`
}

// CheckAligned verifies that records pair one-to-one, in order, with chunks and
// that every vector has the given dimension.
func CheckAligned(chunks []SanitizedChunk, records []EmbeddingRecord, dimension int) error {
	if len(chunks) != len(records) {
		return fmt.Errorf("%w: %d chunks but %d embedding records", ErrInvalidInput, len(chunks), len(records))
	}
	seen := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		id := chunks[i].ChunkID
		if records[i].ChunkID != id {
			return fmt.Errorf("%w: record %d is for %s, chunk is %s", ErrInvalidInput, i, records[i].ChunkID, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate chunk %s", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		if len(records[i].Vector) != dimension {
			return fmt.Errorf("%w: chunk %s has %d values, expected %d",
				ErrDimensionMismatch, id, len(records[i].Vector), dimension)
		}
	}
	return nil
}
