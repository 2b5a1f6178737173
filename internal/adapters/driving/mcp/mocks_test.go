package mcp

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result    *domain.RetrievalResult
	gen       *domain.Generation
	err       error
	lastQuery string
	lastMode  domain.Mode
	lastK     int
}

func (m *mockRetrievalService) Query(_ context.Context, text string, mode domain.Mode, k int) (*domain.RetrievalResult, error) {
	m.lastQuery, m.lastMode, m.lastK = text, mode, k
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRetrievalService) Generation() *domain.Generation {
	return m.gen
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	gens []domain.Generation
	err  error
}

func (m *mockIndexService) Build(context.Context, domain.BuildRequest) (*domain.Generation, error) {
	return nil, m.err
}

func (m *mockIndexService) Generations(context.Context) ([]domain.Generation, error) {
	return m.gens, m.err
}

func (m *mockIndexService) Current(context.Context) (*domain.Generation, error) {
	if len(m.gens) == 0 {
		return nil, domain.ErrNoGeneration
	}
	return &m.gens[len(m.gens)-1], m.err
}

func (m *mockIndexService) Activate(context.Context, int64) error {
	return m.err
}

func (m *mockIndexService) Export(context.Context, int64, string) (*domain.Generation, error) {
	return nil, m.err
}

func (m *mockIndexService) Prune(context.Context, int) ([]int64, error) {
	return nil, nil
}

func (m *mockIndexService) Import(context.Context, string) (*domain.Generation, error) {
	return nil, m.err
}
