package driven

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// DocumentSanitizer turns a raw document into redacted, content-addressed chunks.
// Implementations compile their detectors once and are safe for concurrent use.
type DocumentSanitizer interface {
	// BuildChunks sanitises and splits one document. An empty document yields
	// no chunks and no error.
	BuildChunks(ctx context.Context, doc domain.Document) ([]domain.SanitizedChunk, error)

	// Secure is false when pseudonyms are keyed with the development key.
	Secure() bool

	// SaltEpoch fingerprints the pseudonymisation key.
	SaltEpoch() string
}
