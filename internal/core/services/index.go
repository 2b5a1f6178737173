package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
	"github.com/custodia-labs/whis/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService embeds chunks, commits generations and keeps the retrieval
// service serving the current one.
type IndexService struct {
	embedder  driven.EmbeddingService
	store     driven.GenerationStore
	retrieval *RetrievalService
	archive   driven.GenerationArchive

	batchSize int
	metric    domain.Metric
	policies  map[domain.Mode]domain.RetrievalPolicy
	now       func() time.Time
}

// NewIndexService creates an index service. archive may be nil, which
// disables Export and Import.
func NewIndexService(
	embedder driven.EmbeddingService,
	store driven.GenerationStore,
	retrieval *RetrievalService,
	archive driven.GenerationArchive,
	settings *domain.Settings,
) *IndexService {
	batch := settings.Embedding.BatchSize
	if batch <= 0 {
		batch = domain.DefaultSettings().Embedding.BatchSize
	}
	return &IndexService{
		embedder:  embedder,
		store:     store,
		retrieval: retrieval,
		archive:   archive,
		batchSize: batch,
		metric:    settings.Index.Metric,
		policies:  settings.Policies(),
		now:       time.Now,
	}
}

// Build embeds every chunk, commits the generation, then swaps it in.
// The new generation is fully built before the current pointer moves.
func (s *IndexService) Build(ctx context.Context, req domain.BuildRequest) (*domain.Generation, error) {
	logger.Section("Index Build")
	buildID := uuid.NewString()
	logger.Info("build %s: embedding %d chunks with %s in batches of %d",
		buildID, len(req.Chunks), s.embedder.ModelName(), s.batchSize)

	records, err := s.embed(ctx, req.Chunks)
	if err != nil {
		logger.Error("build %s aborted: %v", buildID, err)
		return nil, err
	}

	dim := s.embedder.Dimensions()
	if len(records) > 0 {
		dim = len(records[0].Vector)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: cannot determine vector dimension for an empty corpus", domain.ErrEmbeddingUnavailable)
	}

	gen := domain.Generation{
		BuildID:        buildID,
		EmbeddingModel: s.embedder.ModelName(),
		Dimension:      dim,
		ChunkCount:     len(req.Chunks),
		Metric:         s.metric,
		CreatedAt:      s.now().UTC(),
		SaltEpoch:      req.SaltEpoch,
		SecureSalt:     req.SecureSalt,
		Policies:       s.policies,
	}

	// Build the serving snapshot before committing so a generation that
	// cannot be indexed is never made current.
	snap, err := s.retrieval.NewSnapshot(gen, req.Chunks, records)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Commit(ctx, gen, req.Chunks, records)
	if err != nil {
		return nil, fmt.Errorf("commit generation: %w", err)
	}
	gen.ID = id
	snap.Generation.ID = id
	s.retrieval.Swap(snap)

	logger.Info("build %s committed as generation %d", buildID, id)
	return &gen, nil
}

// embed turns chunks into records in bounded batches. Any batch failure
// aborts with an *domain.EmbeddingBackendError.
func (s *IndexService) embed(ctx context.Context, chunks []domain.SanitizedChunk) ([]domain.EmbeddingRecord, error) {
	records := make([]domain.EmbeddingRecord, 0, len(chunks))
	dim := 0

	for batch, start := 0, 0; start < len(chunks); batch, start = batch+1, start+s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, &domain.EmbeddingBackendError{Batch: batch, Err: err}
		}
		if len(vectors) != len(texts) {
			return nil, &domain.EmbeddingBackendError{
				Batch: batch,
				Err:   fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrInvalidInput, len(vectors), len(texts)),
			}
		}

		for i, vec := range vectors {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) == 0 || len(vec) != dim {
				return nil, &domain.EmbeddingBackendError{
					Batch: batch,
					Err:   fmt.Errorf("%w: got %d values, expected %d", domain.ErrDimensionMismatch, len(vec), dim),
				}
			}
			if s.metric == domain.MetricInnerProduct {
				vec = domain.NormalizeVector(vec)
			}
			c := chunks[start+i]
			records = append(records, domain.EmbeddingRecord{
				ChunkID:  c.ChunkID,
				Vector:   vec,
				Metadata: map[string]string{"source_path": c.SourcePath, "title": c.Title},
			})
		}
		logger.Debug("embedded batch %d (%d texts)", batch, len(texts))
	}
	return records, nil
}

// Generations lists committed generations.
func (s *IndexService) Generations(ctx context.Context) ([]domain.Generation, error) {
	return s.store.List(ctx)
}

// Current returns the registry's current generation.
func (s *IndexService) Current(ctx context.Context) (*domain.Generation, error) {
	return s.store.Current(ctx)
}

// Activate loads an existing generation, then moves the registry pointer and
// the served snapshot to it.
func (s *IndexService) Activate(ctx context.Context, id int64) error {
	gen, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get generation %d: %w", id, err)
	}
	chunks, records, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load generation %d: %w", id, err)
	}
	if err := s.retrieval.checkCompatible(gen); err != nil {
		return err
	}
	snap, err := s.retrieval.NewSnapshot(*gen, chunks, records)
	if err != nil {
		return err
	}
	if err := s.store.Activate(ctx, id); err != nil {
		return fmt.Errorf("activate generation %d: %w", id, err)
	}
	s.retrieval.Swap(snap)
	return nil
}

// Prune deletes old generations from the registry. The served snapshot is
// unaffected because the current generation is never pruned.
func (s *IndexService) Prune(ctx context.Context, keep int) ([]int64, error) {
	if keep < 1 {
		return nil, fmt.Errorf("%w: keep must be at least 1, got %d", domain.ErrInvalidInput, keep)
	}
	pruned, err := s.store.Prune(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("prune generations: %w", err)
	}
	if len(pruned) > 0 {
		logger.Info("pruned %d generation(s), keeping the newest %d", len(pruned), keep)
	}
	return pruned, nil
}

// Export writes a generation's artifacts to dir.
func (s *IndexService) Export(ctx context.Context, id int64, dir string) (*domain.Generation, error) {
	if s.archive == nil {
		return nil, errors.New("export: no artifact archive configured")
	}
	var gen *domain.Generation
	var err error
	if id == 0 {
		gen, err = s.store.Current(ctx)
	} else {
		gen, err = s.store.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	chunks, records, err := s.store.Load(ctx, gen.ID)
	if err != nil {
		return nil, fmt.Errorf("load generation %d: %w", gen.ID, err)
	}
	if err := s.archive.Write(ctx, dir, *gen, chunks, records); err != nil {
		return nil, fmt.Errorf("export generation %d: %w", gen.ID, err)
	}
	logger.Info("exported generation %d (%d chunks) to %s", gen.ID, len(chunks), dir)
	return gen, nil
}

// Import commits a generation read from dir and serves it.
func (s *IndexService) Import(ctx context.Context, dir string) (*domain.Generation, error) {
	if s.archive == nil {
		return nil, errors.New("import: no artifact archive configured")
	}
	gen, chunks, records, err := s.archive.Read(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", dir, err)
	}
	if err := s.retrieval.checkCompatible(gen); err != nil {
		return nil, err
	}

	snap, err := s.retrieval.NewSnapshot(*gen, chunks, records)
	if err != nil {
		return nil, err
	}
	id, err := s.store.Commit(ctx, *gen, chunks, records)
	if err != nil {
		return nil, fmt.Errorf("commit imported generation: %w", err)
	}
	gen.ID = id
	snap.Generation.ID = id
	s.retrieval.Swap(snap)
	logger.Info("imported build %s as generation %d", gen.BuildID, id)
	return gen, nil
}
