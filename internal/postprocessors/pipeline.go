// Package postprocessors chains the processors that turn a sanitised document into chunks.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// ErrTextModified is returned when a stage after the first alters, drops or
// renames a chunk. Only the first stage produces chunk text.
var ErrTextModified = errors.New("processor modified chunk text")

// Pipeline runs a producing stage followed by enrichment stages.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline. The first processor produces chunks and
// the rest may only enrich them.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through every stage in order.
func (p *Pipeline) Process(ctx context.Context, doc *domain.SanitizedDocument) ([]domain.SanitizedChunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.SanitizedChunk
	var produced map[string]string

	for i, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}

		if i == 0 {
			produced = textByID(out)
		} else if err := checkUnchanged(produced, out); err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		chunks = out
	}

	return chunks, nil
}

// Add appends an enrichment stage, or the producing stage if the pipeline is empty.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

func textByID(chunks []domain.SanitizedChunk) map[string]string {
	m := make(map[string]string, len(chunks))
	for i := range chunks {
		m[chunks[i].ChunkID] = chunks[i].Text
	}
	return m
}

func checkUnchanged(produced map[string]string, chunks []domain.SanitizedChunk) error {
	if len(chunks) != len(produced) {
		return fmt.Errorf("%w: %d chunks in, %d out", ErrTextModified, len(produced), len(chunks))
	}
	for i := range chunks {
		text, ok := produced[chunks[i].ChunkID]
		if !ok {
			return fmt.Errorf("%w: unknown chunk %s", ErrTextModified, chunks[i].ChunkID)
		}
		if text != chunks[i].Text {
			return fmt.Errorf("%w: chunk %s", ErrTextModified, chunks[i].ChunkID)
		}
	}
	return nil
}
