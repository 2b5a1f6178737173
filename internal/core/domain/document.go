package domain

import (
	"sort"
	"strings"
	"time"
)

// Document is a raw input document before sanitisation.
// It is ephemeral and consumed once by the sanitizer.
type Document struct {
	// Title is the human-readable title inherited by every chunk.
	Title string

	// SourcePath identifies the originating document (file path, URI).
	SourcePath string

	// Text is the raw, unsanitised body.
	Text string

	// Tags are topic/category labels supplied with the document.
	Tags []string

	// Section is an optional section label carried into chunk provenance.
	Section string

	// Vendor is an optional vendor/product label carried into chunk provenance.
	Vendor string
}

// Provenance locates a chunk within its parent document.
type Provenance struct {
	Section    string `json:"section"`
	Vendor     string `json:"vendor"`
	ChunkIndex int    `json:"chunk_index"`
}

// SanitizedDocument is a document after normalisation and redaction,
// before it is split into chunks.
type SanitizedDocument struct {
	Title          string
	SourcePath     string
	Text           string
	SHA256         string
	Tags           []string
	Section        string
	Vendor         string
	IngestedAt     time.Time
	RedactionStats map[string]int
}

// BaseID returns the content-addressed prefix shared by all chunks of the document.
func (d *SanitizedDocument) BaseID() string {
	h := d.SHA256
	if len(h) > 12 {
		h = h[:12]
	}
	return "kb-" + h
}

// SanitizedChunk is the durable unit of knowledge.
// Text never contains a raw value matched by a configured detector.
type SanitizedChunk struct {
	ChunkID        string         `json:"chunk_id"`
	Title          string         `json:"title"`
	Text           string         `json:"text"`
	SourcePath     string         `json:"source_path"`
	SHA256         string         `json:"sha256"`
	Tags           []string       `json:"tags"`
	IngestedAt     time.Time      `json:"ingested_at"`
	PIIRedacted    bool           `json:"pii_redacted"`
	RedactionStats map[string]int `json:"redaction_stats"`
	Provenance     Provenance     `json:"provenance"`
}

// HasTag reports whether the chunk carries the given tag.
func (c *SanitizedChunk) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormaliseTags lowercases, trims and de-duplicates tags and returns them sorted.
// Tags are a set; sorting keeps serialised output stable.
func NormaliseTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
