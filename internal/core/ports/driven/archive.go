package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// GenerationArchive moves complete generations to and from portable artifacts.
type GenerationArchive interface {
	// Write stores a generation under dir.
	Write(ctx context.Context, dir string, gen domain.Generation,
		chunks []domain.SanitizedChunk, records []domain.EmbeddingRecord) error

	// Read loads a generation previously written to dir.
	Read(ctx context.Context, dir string) (*domain.Generation, []domain.SanitizedChunk, []domain.EmbeddingRecord, error)
}
