package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// GenerationStore is a single-writer versioned registry of index generations.
//
// A generation is written in full before the current pointer advances to it,
// so readers never observe a partially built index.
type GenerationStore interface {
	// Commit persists a complete generation and makes it current.
	// chunks and records must be aligned by position. The assigned ID is
	// returned. Nothing is persisted on error.
	Commit(ctx context.Context, gen domain.Generation,
		chunks []domain.SanitizedChunk, records []domain.EmbeddingRecord) (int64, error)

	// Current returns the generation the current pointer refers to.
	// Returns domain.ErrNoGeneration when nothing has been committed.
	Current(ctx context.Context) (*domain.Generation, error)

	// Get returns a generation by ID or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Generation, error)

	// List returns all generations, oldest first.
	List(ctx context.Context) ([]domain.Generation, error)

	// Load returns the chunks and records of a generation aligned by position.
	Load(ctx context.Context, id int64) ([]domain.SanitizedChunk, []domain.EmbeddingRecord, error)

	// Activate moves the current pointer to an existing generation.
	Activate(ctx context.Context, id int64) error

	// Prune deletes all but the newest keep generations and returns the
	// deleted IDs, oldest first. The current generation is never deleted.
	Prune(ctx context.Context, keep int) ([]int64, error)

	// Close releases resources.
	Close() error
}
