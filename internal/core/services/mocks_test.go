package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors count occurrences of a few marker words, plus a constant bias.
type mockEmbeddingService struct {
	mu         sync.Mutex
	dims       int
	failBatch  int // zero-based batch to fail, -1 for none
	batchSizes []int
	embedErr   error
	queries    []string
}

var mockVocabulary = []string{"brute", "phish", "sigma", "splunk", "lateral"}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{dims: len(mockVocabulary) + 1, failBatch: -1}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	lower := strings.ToLower(text)
	for i, w := range mockVocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[m.dims-1] = 0.1
	return vec
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.queries = append(m.queries, text)
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := len(m.batchSizes)
	m.batchSizes = append(m.batchSizes, len(texts))
	if batch == m.failBatch {
		return nil, errors.New("backend timeout")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return m.dims }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu        sync.Mutex
	hits      []driven.VectorHit
	size      int
	searchErr error
	lastK     int
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Len() int { return m.size }
func (m *mockVectorIndex) Dimension() int { return len(mockVocabulary) + 1 }
func (m *mockVectorIndex) Metric() domain.Metric { return domain.MetricInnerProduct }

// mockSanitizer implements driven.DocumentSanitizer for testing.
// Each non-empty document becomes one chunk per paragraph.
type mockSanitizer struct {
	failPaths map[string]error
}

func (m *mockSanitizer) BuildChunks(_ context.Context, doc domain.Document) ([]domain.SanitizedChunk, error) {
	if err, ok := m.failPaths[doc.SourcePath]; ok {
		return nil, err
	}
	var chunks []domain.SanitizedChunk
	for i, para := range strings.Split(strings.TrimSpace(doc.Text), "\n\n") {
		if para == "" {
			continue
		}
		chunks = append(chunks, domain.SanitizedChunk{
			ChunkID:        "kb-" + para + "-" + string(rune('0'+i)),
			Title:          doc.Title,
			Text:           para,
			SourcePath:     doc.SourcePath,
			Tags:           domain.NormaliseTags(doc.Tags),
			PIIRedacted:    true,
			RedactionStats: map[string]int{"EMAIL": 1},
			Provenance:     domain.Provenance{ChunkIndex: i},
		})
	}
	return chunks, nil
}

func (m *mockSanitizer) Secure() bool { return true }
func (m *mockSanitizer) SaltEpoch() string { return "epoch-1" }

// mockSource implements driven.DocumentSource for testing.
type mockSource struct {
	docs    map[string]domain.Document
	order   []string
	bad     map[string]bool
	listErr error
	loadErr error
}

func (m *mockSource) List(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.order, nil
}

func (m *mockSource) Load(_ context.Context, ref string) (*domain.Document, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.bad[ref] {
		return nil, &domain.DocumentProcessingError{SourcePath: ref, Err: errors.New("invalid UTF-8")}
	}
	doc := m.docs[ref]
	return &doc, nil
}

// mockArchive implements driven.GenerationArchive in memory.
type mockArchive struct {
	gen     domain.Generation
	chunks  []domain.SanitizedChunk
	records []domain.EmbeddingRecord
	dir     string
	readErr error
}

func (m *mockArchive) Write(_ context.Context, dir string, gen domain.Generation,
	chunks []domain.SanitizedChunk, records []domain.EmbeddingRecord) error {
	m.dir, m.gen, m.chunks, m.records = dir, gen, chunks, records
	return nil
}

func (m *mockArchive) Read(_ context.Context, dir string) (*domain.Generation, []domain.SanitizedChunk, []domain.EmbeddingRecord, error) {
	if m.readErr != nil {
		return nil, nil, nil, m.readErr
	}
	gen := m.gen
	return &gen, m.chunks, m.records, nil
}
