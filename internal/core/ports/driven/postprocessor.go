package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// PostProcessor is one stage of chunk production. The first stage of a
// pipeline receives nil and splits the document; later stages may only
// change chunk metadata such as tags. Chunk IDs, order and text are fixed
// once produced, since the ID is derived from the text.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.SanitizedDocument, chunks []domain.SanitizedChunk) ([]domain.SanitizedChunk, error)
}

// PostProcessorPipeline runs its stages in order and returns the final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.SanitizedDocument) ([]domain.SanitizedChunk, error)

	// Names lists the stages in run order.
	Names() []string
}
