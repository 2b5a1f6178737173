package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// DocumentSource supplies raw documents for batch ingest.
type DocumentSource interface {
	// List returns references to every document in the corpus in a stable order.
	List(ctx context.Context) ([]string, error)

	// Load reads one document. Unreadable or undecodable documents return a
	// *domain.DocumentProcessingError.
	Load(ctx context.Context, ref string) (*domain.Document, error)
}
