package driving

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// RetrievalService answers queries under a mode's admission policy.
type RetrievalService interface {
	// Query retrieves up to k candidates (the mode's default when k <= 0) and
	// evaluates the mode's policy. A rejected verdict is a normal result, not
	// an error.
	Query(ctx context.Context, text string, mode domain.Mode, k int) (*domain.RetrievalResult, error)

	// Generation returns the generation currently served, or nil before the
	// first one is loaded.
	Generation() *domain.Generation
}
