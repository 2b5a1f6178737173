// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService turns text into fixed-size vectors. Ingest embeds chunk
// text in batches and retrieval embeds the query; both must use the same
// model and dimensions as the generation they read or write.
//
// A failed call aborts the build or query that made it. Adapters retry
// transient failures themselves and report the final error.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns len(texts) vectors in input order. An empty batch
	// returns nil without contacting the backend.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// ModelName is recorded in the generation manifest and compared on load.
	ModelName() string

	// Ping checks reachability and credentials without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
