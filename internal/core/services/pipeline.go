package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// PipelineService chains ingest and index build. Rebuilds are serialised so
// the registry has a single writer.
type PipelineService struct {
	ingest driving.IngestService
	index  driving.IndexService
	mu     sync.Mutex
}

// NewPipelineService creates a pipeline service.
func NewPipelineService(ingest driving.IngestService, index driving.IndexService) *PipelineService {
	return &PipelineService{ingest: ingest, index: index}
}

// Rebuild ingests the source and builds the next generation.
func (p *PipelineService) Rebuild(ctx context.Context, source driven.DocumentSource) (*domain.RebuildReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ingested, err := p.ingest.IngestSource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	gen, err := p.index.Build(ctx, domain.BuildRequest{
		Chunks:     ingested.Chunks,
		SaltEpoch:  ingested.Report.SaltEpoch,
		SecureSalt: ingested.Report.SecureSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	return &domain.RebuildReport{Ingest: ingested.Report, Generation: *gen}, nil
}
