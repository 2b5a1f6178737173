package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
	"github.com/custodia-labs/whis/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Snapshot is one immutable, fully built generation ready to serve.
type Snapshot struct {
	Generation domain.Generation
	Index      driven.VectorIndex
	chunks     map[string]domain.SanitizedChunk
}

// Chunk returns the chunk with the given ID.
func (s *Snapshot) Chunk(id string) (domain.SanitizedChunk, bool) {
	c, ok := s.chunks[id]
	return c, ok
}

// RetrievalService serves queries against the current snapshot.
//
// The snapshot pointer is swapped atomically, so queries in flight keep the
// generation they started with while a rebuild installs the next one.
type RetrievalService struct {
	embedder      driven.EmbeddingService
	newIndex      driven.VectorIndexFactory
	policies      map[domain.Mode]domain.RetrievalPolicy
	maxQueryChars int

	current atomic.Pointer[Snapshot]
}

// NewRetrievalService creates a retrieval service with the policies and
// query limits from settings.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	newIndex driven.VectorIndexFactory,
	settings *domain.Settings,
) *RetrievalService {
	return &RetrievalService{
		embedder:      embedder,
		newIndex:      newIndex,
		policies:      settings.Policies(),
		maxQueryChars: settings.Index.MaxQueryChars,
	}
}

// NewSnapshot builds the index for a generation.
func (s *RetrievalService) NewSnapshot(
	gen domain.Generation,
	chunks []domain.SanitizedChunk,
	records []domain.EmbeddingRecord,
) (*Snapshot, error) {
	if err := domain.CheckAligned(chunks, records, gen.Dimension); err != nil {
		return nil, err
	}
	idx, err := s.newIndex(gen.Dimension, gen.Metric, records)
	if err != nil {
		return nil, fmt.Errorf("build index for generation %d: %w", gen.ID, err)
	}
	byID := make(map[string]domain.SanitizedChunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}
	return &Snapshot{Generation: gen, Index: idx, chunks: byID}, nil
}

// Swap installs a snapshot and returns the one it replaced.
func (s *RetrievalService) Swap(next *Snapshot) *Snapshot {
	prev := s.current.Swap(next)
	prevID := int64(0)
	if prev != nil {
		prevID = prev.Generation.ID
	}
	logger.Info("serving generation %d (was %d, %d chunks)", next.Generation.ID, prevID, next.Index.Len())
	return prev
}

// Load installs the registry's current generation. It returns
// domain.ErrNoGeneration when nothing has been built yet.
func (s *RetrievalService) Load(ctx context.Context, store driven.GenerationStore) error {
	gen, err := store.Current(ctx)
	if err != nil {
		return err
	}
	return s.LoadGeneration(ctx, store, gen)
}

// LoadGeneration installs a specific generation from the registry.
func (s *RetrievalService) LoadGeneration(ctx context.Context, store driven.GenerationStore, gen *domain.Generation) error {
	if err := s.checkCompatible(gen); err != nil {
		return err
	}
	chunks, records, err := store.Load(ctx, gen.ID)
	if err != nil {
		return fmt.Errorf("load generation %d: %w", gen.ID, err)
	}
	snap, err := s.NewSnapshot(*gen, chunks, records)
	if err != nil {
		return err
	}
	s.Swap(snap)
	return nil
}

// checkCompatible refuses generations whose vectors the configured embedder
// cannot be compared against.
func (s *RetrievalService) checkCompatible(gen *domain.Generation) error {
	if dims := s.embedder.Dimensions(); dims > 0 && dims != gen.Dimension {
		return fmt.Errorf("%w: generation %d has dimension %d, embedder %s produces %d",
			domain.ErrDimensionMismatch, gen.ID, gen.Dimension, s.embedder.ModelName(), dims)
	}
	if gen.EmbeddingModel != s.embedder.ModelName() {
		logger.Warn("generation %d was embedded with %s but queries use %s",
			gen.ID, gen.EmbeddingModel, s.embedder.ModelName())
	}
	return nil
}

// Snapshot returns the snapshot currently served, or nil.
func (s *RetrievalService) Snapshot() *Snapshot {
	return s.current.Load()
}

// Generation returns the generation currently served, or nil.
func (s *RetrievalService) Generation() *domain.Generation {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	gen := snap.Generation
	return &gen
}

// Policy returns the policy configured for a mode.
func (s *RetrievalService) Policy(mode domain.Mode) (domain.RetrievalPolicy, bool) {
	p, ok := s.policies[mode]
	return p, ok
}

// Query retrieves candidates and evaluates the mode's policy.
func (s *RetrievalService) Query(ctx context.Context, text string, mode domain.Mode, k int) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	policy, ok := s.policies[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = policy.K
	}

	result := &domain.RetrievalResult{
		Mode:   mode,
		K:      k,
		Chunks: []domain.ScoredChunk{},
		Trail:  []domain.QueryState{domain.StateQueried},
	}
	result.Query, result.Truncated = truncateRunes(text, s.maxQueryChars)
	if result.Truncated {
		logger.Warn("query truncated from %d to %d characters", utf8.RuneCountInString(text), s.maxQueryChars)
	}
	logger.Debug("mode=%s k=%d query=%q", mode, k, result.Query)

	snap := s.current.Load()
	if snap == nil {
		logger.Warn("no index generation loaded; treating corpus as empty")
	} else {
		result.Generation = snap.Generation.ID
		candidates, err := s.retrieve(ctx, snap, result.Query, k)
		if err != nil {
			return nil, err
		}
		result.Chunks = candidates
	}
	result.Trail = append(result.Trail, domain.StateCandidatesRetrieved)

	result.Verdict = EvaluatePolicy(policy, result.Chunks)
	result.Trail = append(result.Trail, domain.StatePolicyEvaluated)

	if result.Verdict.Met {
		result.Trail = append(result.Trail, domain.StateAdmitted)
	} else {
		result.Trail = append(result.Trail, domain.StateRejected)
	}
	logger.Info("%s query: %d candidates, %s %v",
		mode, len(result.Chunks), result.State(), result.Verdict.Reasons)
	return result, nil
}

func (s *RetrievalService) retrieve(ctx context.Context, snap *Snapshot, query string, k int) ([]domain.ScoredChunk, error) {
	if snap.Index.Len() == 0 {
		return []domain.ScoredChunk{}, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", errors.Join(domain.ErrEmbeddingUnavailable, err))
	}
	hits, err := snap.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search generation %d: %w", snap.Generation.ID, err)
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		c, ok := snap.Chunk(h.ChunkID)
		if !ok {
			return nil, fmt.Errorf("%w: index hit %s has no chunk in generation %d",
				domain.ErrVectorIndexUnavailable, h.ChunkID, snap.Generation.ID)
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: h.Score})
	}
	return out, nil
}

// truncateRunes cuts s to at most limit runes. limit <= 0 disables truncation.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
