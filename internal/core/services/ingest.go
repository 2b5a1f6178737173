package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
	"github.com/custodia-labs/whis/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService sanitises documents on a bounded worker pool.
type IngestService struct {
	sanitizer driven.DocumentSanitizer
	workers   int
	now       func() time.Time
}

// NewIngestService creates an ingest service. workers <= 0 means one worker.
func NewIngestService(sanitizer driven.DocumentSanitizer, workers int) *IngestService {
	if workers <= 0 {
		workers = 1
	}
	return &IngestService{
		sanitizer: sanitizer,
		workers:   workers,
		now:       time.Now,
	}
}

// docOutcome is the per-document result slot filled by a worker.
type docOutcome struct {
	sourcePath string
	chunks     []domain.SanitizedChunk
	skipped    error
}

// Ingest sanitises the given documents.
func (s *IngestService) Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error) {
	return s.run(ctx, len(docs), func(_ context.Context, i int) (*domain.Document, error) {
		return &docs[i], nil
	})
}

// IngestSource loads and sanitises every document a source lists.
func (s *IngestService) IngestSource(ctx context.Context, source driven.DocumentSource) (*domain.IngestResult, error) {
	refs, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return s.run(ctx, len(refs), func(ctx context.Context, i int) (*domain.Document, error) {
		return source.Load(ctx, refs[i])
	})
}

// run processes n documents in parallel. Results are assembled in input
// order, so the output is independent of scheduling.
func (s *IngestService) run(
	ctx context.Context,
	n int,
	load func(ctx context.Context, i int) (*domain.Document, error),
) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	report := domain.IngestReport{
		RunID:           uuid.NewString(),
		StartedAt:       s.now().UTC(),
		Skipped:         []domain.SkippedDocument{},
		RedactionTotals: map[string]int{},
		SecureSalt:      s.sanitizer.Secure(),
		SaltEpoch:       s.sanitizer.SaltEpoch(),
	}
	if !report.SecureSalt {
		logger.Warn("ingest run %s uses the development pseudonym key; output is not secure", report.RunID)
	}

	outcomes := make([]docOutcome, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.processOne(gctx, i, load)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{Chunks: []domain.SanitizedChunk{}}
	seen := make(map[string]string)
	for _, out := range outcomes {
		if out.skipped != nil {
			logger.Warn("skipping %s: %v", out.sourcePath, out.skipped)
			report.Skipped = append(report.Skipped, domain.SkippedDocument{
				SourcePath: out.sourcePath,
				Reason:     out.skipped.Error(),
			})
			continue
		}
		report.Documents++
		if len(out.chunks) > 0 {
			// Stats are document-level and repeated on every chunk.
			for name, count := range out.chunks[0].RedactionStats {
				report.RedactionTotals[name] += count
			}
		}
		for _, c := range out.chunks {
			if first, dup := seen[c.ChunkID]; dup {
				logger.Debug("dropping chunk %s from %s: same content as %s", c.ChunkID, c.SourcePath, first)
				report.Duplicates++
				continue
			}
			seen[c.ChunkID] = c.SourcePath
			result.Chunks = append(result.Chunks, c)
		}
	}

	report.Chunks = len(result.Chunks)
	report.FinishedAt = s.now().UTC()
	result.Report = report
	logger.Info("ingested %d documents into %d chunks (%d skipped, %d duplicate chunks)",
		report.Documents, report.Chunks, len(report.Skipped), report.Duplicates)
	return result, nil
}

// processOne loads and sanitises one document. Document-level failures are
// returned in the outcome; only cancellation aborts the run.
func (s *IngestService) processOne(
	ctx context.Context,
	i int,
	load func(ctx context.Context, i int) (*domain.Document, error),
) (docOutcome, error) {
	doc, err := load(ctx, i)
	if err != nil {
		var procErr *domain.DocumentProcessingError
		if errors.As(err, &procErr) {
			return docOutcome{sourcePath: procErr.SourcePath, skipped: procErr.Err}, nil
		}
		if ctx.Err() != nil {
			return docOutcome{}, ctx.Err()
		}
		return docOutcome{}, fmt.Errorf("load document %d: %w", i, err)
	}

	chunks, err := s.sanitizer.BuildChunks(ctx, *doc)
	if err != nil {
		if ctx.Err() != nil {
			return docOutcome{}, ctx.Err()
		}
		return docOutcome{sourcePath: doc.SourcePath, skipped: err}, nil
	}
	logger.Debug("%s: %d chunks", doc.SourcePath, len(chunks))
	return docOutcome{sourcePath: doc.SourcePath, chunks: chunks}, nil
}
