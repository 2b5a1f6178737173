package driving

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// IndexService builds and manages index generations.
type IndexService interface {
	// Build embeds the chunks, commits a new generation and makes it current.
	// An embedding failure aborts the build and nothing is committed.
	Build(ctx context.Context, req domain.BuildRequest) (*domain.Generation, error)

	// Generations lists committed generations, oldest first.
	Generations(ctx context.Context) ([]domain.Generation, error)

	// Current returns the generation being served.
	Current(ctx context.Context) (*domain.Generation, error)

	// Activate serves an existing generation, e.g. to roll back.
	Activate(ctx context.Context, id int64) error

	// Prune deletes old generations, keeping the newest keep and the one
	// being served. keep must be at least 1.
	Prune(ctx context.Context, keep int) ([]int64, error)

	// Export writes a generation's artifacts to dir. id 0 means the current generation.
	Export(ctx context.Context, id int64, dir string) (*domain.Generation, error)

	// Import commits a generation from artifacts in dir and makes it current.
	Import(ctx context.Context, dir string) (*domain.Generation, error)
}

// PipelineService runs ingest and index build as one step.
type PipelineService interface {
	// Rebuild ingests the source and builds the next generation from it.
	// On failure the previously served generation is left in place.
	Rebuild(ctx context.Context, source driven.DocumentSource) (*domain.RebuildReport, error)
}
