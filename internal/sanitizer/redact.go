package sanitizer

import (
	"errors"
	"strings"
)

// maxRedactionPasses bounds the fixpoint loop. Replacements never match a
// detector, so a second pass only runs when a replacement joins adjacent text
// into a new match.
const maxRedactionPasses = 16

// Redactor applies an ordered detector list to text.
type Redactor struct {
	detectors []*Detector
	pseudo    *Pseudonymizer
}

// NewRedactor creates a redactor. At least one detector is required.
func NewRedactor(detectors []*Detector, pseudo *Pseudonymizer) (*Redactor, error) {
	if len(detectors) == 0 {
		return nil, errors.New("redactor: no detectors compiled")
	}
	if pseudo == nil {
		return nil, errors.New("redactor: pseudonymizer is required")
	}
	return &Redactor{detectors: detectors, pseudo: pseudo}, nil
}

// Detectors returns the compiled detectors in application order.
func (r *Redactor) Detectors() []*Detector {
	return r.detectors
}

// Pseudonymizer returns the redactor's pseudonymizer.
func (r *Redactor) Pseudonymizer() *Pseudonymizer {
	return r.pseudo
}

// Redact replaces every detector match and returns the redacted text with
// per-detector match counts. Only non-zero counts are present.
func (r *Redactor) Redact(text string) (string, map[string]int) {
	stats := make(map[string]int)
	for pass := 0; pass < maxRedactionPasses; pass++ {
		var found map[string]int
		text, found = r.redactOnce(text)
		if len(found) == 0 {
			break
		}
		for name, n := range found {
			stats[name] += n
		}
	}
	return text, stats
}

func (r *Redactor) redactOnce(text string) (string, map[string]int) {
	found := make(map[string]int)
	for _, d := range r.detectors {
		text = d.re.ReplaceAllStringFunc(text, func(m string) string {
			if !d.accepts(m) {
				return m
			}
			found[d.Name]++
			return r.replacement(d, m)
		})
	}
	return text, found
}

func (r *Redactor) replacement(d *Detector, match string) string {
	if d.Strategy != StrategyPseudonym {
		return d.Token
	}
	if d.FoldCase {
		match = strings.ToLower(match)
	}
	return r.pseudo.Pseudonym(d.Token, match)
}

// MergeStats adds src counts into dst.
func MergeStats(dst, src map[string]int) {
	for name, n := range src {
		dst[name] += n
	}
}
