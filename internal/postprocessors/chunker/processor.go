// Package chunker provides a heading-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// DefaultMaxChars is the default number of characters per chunk.
const DefaultMaxChars = 1800

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// boundaryFloor is the fraction of the window a boundary must lie beyond to be
// used. Earlier boundaries would produce very short chunks.
const boundaryFloor = 0.4

// Boundaries are tried in order of preference.
var boundaries = []string{"\n## ", "\n\n"}

// Span is a chunk's half-open character range [Start, End) within the text.
type Span struct {
	Start int
	End   int
}

// Processor splits sanitised document text into overlapping chunks, preferring
// to cut at a level-2 heading, then a paragraph break.
// It implements the PostProcessor interface.
type Processor struct {
	maxChars int
	overlap  int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk window in characters.
func WithMaxChars(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxChars = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.maxChars {
		p.overlap = p.maxChars / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Spans returns the ranges Split would cut, including only ranges with
// non-whitespace content. The union of all ranges, whitespace ones included,
// covers the text.
func (p *Processor) Spans(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	var spans []Span

	for cursor := 0; cursor < n; {
		end := min(cursor+p.maxChars, n)
		cut := end - cursor
		if end < n {
			cut = p.findCut(string(runes[cursor:end]), cut)
		}

		if strings.TrimSpace(string(runes[cursor:cursor+cut])) != "" {
			spans = append(spans, Span{Start: cursor, End: cursor + cut})
		}
		if cursor+cut >= n {
			break
		}

		if cut > p.overlap {
			cursor += cut - p.overlap
		} else {
			cursor += cut
		}
	}

	return spans
}

// Split returns the chunk texts in document order.
func (p *Processor) Split(text string) []string {
	runes := []rune(text)
	spans := p.Spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.Start:s.End])
	}
	return out
}

// findCut returns the cut position, in characters, within a full window.
func (p *Processor) findCut(window string, width int) int {
	floor := int(float64(width) * boundaryFloor)
	for _, b := range boundaries {
		idx := strings.LastIndex(window, b)
		if idx < 0 {
			continue
		}
		if pos := utf8.RuneCountInString(window[:idx]); pos > floor {
			return pos
		}
	}
	return width
}

// Process splits the document text into chunks. Every chunk is marked
// PIIRedacted since its document went through the redactor; RedactionStats
// says what was found.
// Input chunks are ignored; this processor creates new chunks from document text.
// Chunk IDs derive from the document hash and chunk position, so re-sanitising
// identical content reproduces identical IDs.
func (p *Processor) Process(_ context.Context, doc *domain.SanitizedDocument, _ []domain.SanitizedChunk) ([]domain.SanitizedChunk, error) {
	if doc.Text == "" {
		return []domain.SanitizedChunk{}, nil
	}

	texts := p.Split(doc.Text)
	base := doc.BaseID()

	chunks := make([]domain.SanitizedChunk, 0, len(texts))
	for i, text := range texts {
		stats := maps.Clone(doc.RedactionStats)
		if stats == nil {
			stats = map[string]int{}
		}
		chunks = append(chunks, domain.SanitizedChunk{
			ChunkID:        fmt.Sprintf("%s-%03d", base, i),
			Title:          doc.Title,
			Text:           text,
			SourcePath:     doc.SourcePath,
			SHA256:         doc.SHA256,
			Tags:           append([]string{}, doc.Tags...),
			IngestedAt:     doc.IngestedAt,
			PIIRedacted:    true,
			RedactionStats: stats,
			Provenance: domain.Provenance{
				Section:    doc.Section,
				Vendor:     doc.Vendor,
				ChunkIndex: i,
			},
		})
	}

	return chunks, nil
}
