package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// Ensure GenerationStore implements the interface.
var _ driven.GenerationStore = (*GenerationStore)(nil)

type storedGeneration struct {
	gen     domain.Generation
	chunks  []domain.SanitizedChunk
	records []domain.EmbeddingRecord
	pruned  bool
}

// GenerationStore is an in-memory implementation of driven.GenerationStore.
// Used for tests and for one-shot builds that are exported rather than persisted.
type GenerationStore struct {
	mu          sync.RWMutex
	generations []storedGeneration
	current     int64
	buildIDs    map[string]struct{}
}

// NewGenerationStore creates a new in-memory generation store.
func NewGenerationStore() *GenerationStore {
	return &GenerationStore{
		buildIDs: make(map[string]struct{}),
	}
}

// Commit stores a generation and makes it current.
func (s *GenerationStore) Commit(
	_ context.Context,
	gen domain.Generation,
	chunks []domain.SanitizedChunk,
	records []domain.EmbeddingRecord,
) (int64, error) {
	if err := domain.CheckAligned(chunks, records, gen.Dimension); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.buildIDs[gen.BuildID]; dup {
		return 0, domain.ErrInvalidInput
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}
	gen.ID = int64(len(s.generations)) + 1
	gen.ChunkCount = len(chunks)

	s.generations = append(s.generations, storedGeneration{
		gen:     gen,
		chunks:  slices.Clone(chunks),
		records: cloneRecords(records),
	})
	s.buildIDs[gen.BuildID] = struct{}{}
	s.current = gen.ID
	return gen.ID, nil
}

// Current returns the generation the pointer refers to.
func (s *GenerationStore) Current(_ context.Context) (*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == 0 {
		return nil, domain.ErrNoGeneration
	}
	gen := s.generations[s.current-1].gen
	return &gen, nil
}

// Get returns a generation by ID.
func (s *GenerationStore) Get(_ context.Context, id int64) (*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	gen := stored.gen
	return &gen, nil
}

// List returns all generations, oldest first.
func (s *GenerationStore) List(_ context.Context) ([]domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Generation, 0, len(s.generations))
	for i := range s.generations {
		if !s.generations[i].pruned {
			out = append(out, s.generations[i].gen)
		}
	}
	return out, nil
}

// Load returns copies of a generation's chunks and records.
func (s *GenerationStore) Load(_ context.Context, id int64) ([]domain.SanitizedChunk, []domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.lookup(id)
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return slices.Clone(stored.chunks), cloneRecords(stored.records), nil
}

// Activate moves the current pointer to an existing generation.
func (s *GenerationStore) Activate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return domain.ErrNotFound
	}
	s.current = id
	return nil
}

// Prune drops all but the newest keep generations, sparing the current one.
// IDs are never reused.
func (s *GenerationStore) Prune(_ context.Context, keep int) ([]int64, error) {
	if keep < 1 {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var live []int
	for i := range s.generations {
		if !s.generations[i].pruned {
			live = append(live, i)
		}
	}
	if len(live) <= keep {
		return nil, nil
	}

	var pruned []int64
	for _, i := range live[:len(live)-keep] {
		g := &s.generations[i]
		if g.gen.ID == s.current {
			continue
		}
		g.pruned = true
		g.chunks, g.records = nil, nil
		pruned = append(pruned, g.gen.ID)
	}
	return pruned, nil
}

// Close is a no-op.
func (s *GenerationStore) Close() error {
	return nil
}

func (s *GenerationStore) lookup(id int64) (storedGeneration, bool) {
	if id < 1 || id > int64(len(s.generations)) || s.generations[id-1].pruned {
		return storedGeneration{}, false
	}
	return s.generations[id-1], true
}

func cloneRecords(records []domain.EmbeddingRecord) []domain.EmbeddingRecord {
	out := make([]domain.EmbeddingRecord, len(records))
	for i, r := range records {
		out[i] = domain.EmbeddingRecord{ChunkID: r.ChunkID, Vector: slices.Clone(r.Vector), Metadata: r.Metadata}
	}
	return out
}
