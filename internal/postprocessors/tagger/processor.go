// Package tagger derives ATT&CK technique and tool tags from chunk text.
package tagger

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// techniquePattern matches ATT&CK technique and sub-technique IDs (T1059, t1059.001).
var techniquePattern = regexp.MustCompile(`(?i)\bT(\d{4})(?:\.(\d{3}))?\b`)

// DefaultTools are the tool and platform names recognised in chunk text.
var DefaultTools = []string{
	"sigma", "splunk", "limacharlie", "yara", "kql", "sentinel",
	"elastic", "suricata", "zeek", "velociraptor", "osquery", "sysmon",
}

// Processor adds "attack:tNNNN" and "tool:<name>" tags to chunks.
// It never changes chunk text.
// It implements the PostProcessor interface.
type Processor struct {
	tools *regexp.Regexp
}

// Option configures the tagger processor.
type Option func(*options)

type options struct {
	tools []string
}

// WithTools replaces the recognised tool names.
func WithTools(tools []string) Option {
	return func(o *options) {
		if len(tools) > 0 {
			o.tools = tools
		}
	}
}

// New creates a new tagger processor.
func New(opts ...Option) *Processor {
	o := &options{tools: DefaultTools}
	for _, opt := range opts {
		opt(o)
	}

	quoted := make([]string, 0, len(o.tools))
	for _, t := range o.tools {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(t)))
		}
	}
	return &Processor{
		tools: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tagger"
}

// Process adds derived tags to each chunk.
func (p *Processor) Process(_ context.Context, _ *domain.SanitizedDocument, chunks []domain.SanitizedChunk) ([]domain.SanitizedChunk, error) {
	for i := range chunks {
		tags := append([]string{}, chunks[i].Tags...)
		tags = append(tags, p.Tags(chunks[i].Text)...)
		chunks[i].Tags = domain.NormaliseTags(tags)
	}
	return chunks, nil
}

// Tags returns the tags derived from text.
func (p *Processor) Tags(text string) []string {
	var tags []string
	for _, m := range techniquePattern.FindAllStringSubmatch(text, -1) {
		tag := "attack:t" + m[1]
		if m[2] != "" {
			tag += "." + m[2]
		}
		tags = append(tags, tag)
	}
	for _, m := range p.tools.FindAllString(text, -1) {
		tags = append(tags, "tool:"+strings.ToLower(m))
	}
	return tags
}
