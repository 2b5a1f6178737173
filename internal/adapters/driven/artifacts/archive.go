package artifacts

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// Ensure Archive implements the interface.
var _ driven.GenerationArchive = Archive{}

// Archive stores generations as artifact directories.
type Archive struct{}

// Write exports a generation to dir.
func (Archive) Write(ctx context.Context, dir string, gen domain.Generation,
	chunks []domain.SanitizedChunk, records []domain.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Export(dir, gen, chunks, records)
}

// Read imports the generation in dir.
func (Archive) Read(ctx context.Context, dir string) (*domain.Generation, []domain.SanitizedChunk, []domain.EmbeddingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	m, chunks, records, err := Import(dir)
	if err != nil {
		return nil, nil, nil, err
	}
	gen := m.ToGeneration()
	return &gen, chunks, records, nil
}
