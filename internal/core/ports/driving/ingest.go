package driving

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// IngestService sanitises documents into chunks.
type IngestService interface {
	// Ingest sanitises the given documents. Documents that fail are skipped
	// and listed in the report; the batch continues.
	Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error)

	// IngestSource loads every document from a source and sanitises it.
	IngestSource(ctx context.Context, source driven.DocumentSource) (*domain.IngestResult, error)
}
