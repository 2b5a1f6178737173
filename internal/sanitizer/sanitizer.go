package sanitizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/logger"
)

// Ensure Sanitizer implements the interface.
var _ driven.DocumentSanitizer = (*Sanitizer)(nil)

// maxSanitizePasses bounds the normalise/redact loop in Sanitize.
const maxSanitizePasses = 4

// Sanitizer normalises and redacts documents and splits them into chunks.
type Sanitizer struct {
	redactor *Redactor
	pipeline driven.PostProcessorPipeline
	now      func() time.Time
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithClock overrides the ingestion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Sanitizer) {
		s.now = now
	}
}

// New creates a sanitizer. The pipeline turns a sanitised document into
// chunks; it may be nil if only Sanitize is used.
func New(redactor *Redactor, pipeline driven.PostProcessorPipeline, opts ...Option) *Sanitizer {
	s := &Sanitizer{
		redactor: redactor,
		pipeline: pipeline,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromSettings compiles the built-in and extra detectors and keys the
// pseudonymizer with salt.
func NewFromSettings(
	cfg domain.SanitizerSettings,
	salt string,
	pipeline driven.PostProcessorPipeline,
	opts ...Option,
) (*Sanitizer, error) {
	pseudo, err := NewPseudonymizer(salt, cfg.AllowInsecureSalt)
	if err != nil {
		return nil, err
	}
	specs := append(DefaultDetectorSpecs(), ParseExtraDetectors(cfg.ExtraDetectors)...)
	redactor, err := NewRedactor(CompileDetectors(specs), pseudo)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "sanitizer.extra_detectors", Err: err}
	}
	return New(redactor, pipeline, opts...), nil
}

// Secure reports whether pseudonyms are keyed by a real salt.
func (s *Sanitizer) Secure() bool {
	return s.redactor.Pseudonymizer().Secure()
}

// SaltEpoch fingerprints the pseudonymisation key.
func (s *Sanitizer) SaltEpoch() string {
	return s.redactor.Pseudonymizer().Epoch()
}

// Redactor returns the underlying redactor.
func (s *Sanitizer) Redactor() *Redactor {
	return s.redactor
}

// Sanitize normalises, redacts and hashes a document. The result is a fixed
// point: sanitising its text again yields the same text and no new matches.
func (s *Sanitizer) Sanitize(doc domain.Document) *domain.SanitizedDocument {
	stats := make(map[string]int)

	text := Normalize(doc.Text)
	for pass := 0; pass < maxSanitizePasses; pass++ {
		redacted, found := s.redactor.Redact(text)
		MergeStats(stats, found)
		next := Normalize(spaceHeadings(redacted))
		if next == text && len(found) == 0 {
			break
		}
		text = next
	}

	title, found := s.redactor.Redact(Normalize(doc.Title))
	MergeStats(stats, found)

	sum := sha256.Sum256([]byte(text))
	return &domain.SanitizedDocument{
		Title:          title,
		SourcePath:     doc.SourcePath,
		Text:           text,
		SHA256:         hex.EncodeToString(sum[:]),
		Tags:           domain.NormaliseTags(doc.Tags),
		Section:        doc.Section,
		Vendor:         doc.Vendor,
		IngestedAt:     s.now().UTC(),
		RedactionStats: stats,
	}
}

// BuildChunks sanitises a document and runs it through the chunk pipeline.
// A document that is empty after sanitisation yields no chunks.
func (s *Sanitizer) BuildChunks(ctx context.Context, doc domain.Document) ([]domain.SanitizedChunk, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("sanitizer: no chunk pipeline configured")
	}
	sanitized := s.Sanitize(doc)
	if sanitized.Text == "" {
		return []domain.SanitizedChunk{}, nil
	}
	chunks, err := s.pipeline.Process(ctx, sanitized)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.SourcePath, err)
	}
	for i := range chunks {
		s.redactChunk(&chunks[i])
	}
	return chunks, nil
}

// redactChunk redacts matches that only exist in the chunk. A window cut
// inside a run like "x_AKIA..." leaves a fresh word boundary, so a value the
// document-level pass could not see becomes matchable.
func (s *Sanitizer) redactChunk(c *domain.SanitizedChunk) {
	text, found := s.redactor.Redact(c.Text)
	if len(found) == 0 {
		return
	}
	logger.Debug("chunk %s: window edge exposed %v", c.ChunkID, found)
	c.Text = text
	if c.RedactionStats == nil {
		c.RedactionStats = make(map[string]int)
	}
	MergeStats(c.RedactionStats, found)
}
