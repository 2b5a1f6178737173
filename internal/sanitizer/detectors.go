package sanitizer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/whis/internal/logger"
)

// Strategy selects how a detector's matches are replaced.
type Strategy string

const (
	// StrategyMarker replaces a match with a fixed token such as "[URL]".
	StrategyMarker Strategy = "marker"

	// StrategyPseudonym replaces a match with a keyed pseudonym such as
	// "EMAIL_3fa9c01d2b". Equal inputs produce equal pseudonyms.
	StrategyPseudonym Strategy = "pseudonym"
)

// DetectorSpec is the uncompiled form of a detector.
type DetectorSpec struct {
	// Name keys the redaction statistics.
	Name string

	// Pattern is an RE2 regular expression.
	Pattern string

	Strategy Strategy

	// Token is the marker text, or the pseudonym prefix.
	Token string

	// FoldCase lowercases the value before pseudonymising it.
	FoldCase bool

	// Accept filters raw regex matches. Nil accepts all.
	Accept func(match string) bool
}

// Detector is a compiled sensitive-value recogniser.
type Detector struct {
	Name     string
	Strategy Strategy
	Token    string
	FoldCase bool

	re     *regexp.Regexp
	accept func(string) bool
}

// Find returns every value in text this detector would redact.
func (d *Detector) Find(text string) []string {
	var out []string
	for _, m := range d.re.FindAllString(text, -1) {
		if d.accepts(m) {
			out = append(out, m)
		}
	}
	return out
}

func (d *Detector) accepts(match string) bool {
	return d.accept == nil || d.accept(match)
}

// Default detector patterns. Order matters: earlier detectors consume text
// before later ones see it, so URLs go before emails and IPs, and timestamps
// go before IPv6 so "12:30:45" is not read as an address.
const (
	patternAWSKey = `\b(?:AKIA|ASIA|AGPA|AIDA|AROA|ANPA|ANVA)[0-9A-Z]{16}\b`

	patternGenericSecret = `(?i)\b(?:password|passwd|pwd|secret|client[_-]?secret|api[_-]?key|` +
		`access[_-]?token|auth[_-]?token|token)[ \t]*[:=][ \t]*["']?[^\s"']+["']?`

	patternURL = "(?i)\\b(?:https?|ftp)://[^\\s<>\"'`)\\]]+"

	patternEmail = `(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`

	patternUUID = `(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`

	patternTimestamp = `\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:[.,]\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?` +
		`|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) +\d{1,2} \d{2}:\d{2}:\d{2}\b`

	patternIPv6 = `(?i)(?:` +
		`\b(?:[0-9a-f]{1,4}:){7}[0-9a-f]{1,4}\b` +
		`|\b(?:[0-9a-f]{1,4}:){1,6}(?::[0-9a-f]{1,4}){1,6}\b` +
		`|\b(?:[0-9a-f]{1,4}:){1,7}:` +
		`|::(?:[0-9a-f]{1,4}:){0,6}[0-9a-f]{1,4}\b` +
		`)`

	patternIPv4 = `\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`

	patternWindowsPath = `(?i)\b[a-z]:\\[^\s"'<>|*?]*|\\\\[a-z0-9._$-]+\\[^\s"'<>|*?]*`

	patternHighEntropy = `\b[A-Za-z0-9+/]{40,}={0,2}`
)

// minTokenEntropy is the Shannon entropy, in bits per character, above which a
// long base64-alphabet run is treated as a credential.
const minTokenEntropy = 3.5

// DefaultDetectorSpecs returns the built-in detectors in application order.
func DefaultDetectorSpecs() []DetectorSpec {
	return []DetectorSpec{
		{Name: "AWS_ACCESS_KEY", Pattern: patternAWSKey, Strategy: StrategyMarker, Token: "[AWS_KEY]"},
		{Name: "GENERIC_SECRET", Pattern: patternGenericSecret, Strategy: StrategyMarker, Token: "[SECRET]"},
		{Name: "URL", Pattern: patternURL, Strategy: StrategyMarker, Token: "[URL]"},
		{Name: "EMAIL", Pattern: patternEmail, Strategy: StrategyPseudonym, Token: "EMAIL", FoldCase: true},
		{Name: "UUID", Pattern: patternUUID, Strategy: StrategyPseudonym, Token: "UUID", FoldCase: true},
		{Name: "TIMESTAMP", Pattern: patternTimestamp, Strategy: StrategyMarker, Token: "[TIMESTAMP]"},
		{Name: "IPV6", Pattern: patternIPv6, Strategy: StrategyPseudonym, Token: "IP", FoldCase: true},
		{Name: "IPV4", Pattern: patternIPv4, Strategy: StrategyPseudonym, Token: "IP"},
		{Name: "WINDOWS_PATH", Pattern: patternWindowsPath, Strategy: StrategyMarker, Token: "[PATH]"},
		{
			Name: "HIGH_ENTROPY_TOKEN", Pattern: patternHighEntropy, Strategy: StrategyMarker, Token: "[TOKEN]",
			Accept: looksLikeCredential,
		},
	}
}

// ParseDetectorSpec parses a user detector of the form
// "NAME|strategy|token|pattern". The pattern may itself contain '|'.
func ParseDetectorSpec(line string) (DetectorSpec, error) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return DetectorSpec{}, fmt.Errorf("detector %q: expected NAME|strategy|token|pattern", line)
	}
	spec := DetectorSpec{
		Name:     strings.ToUpper(strings.TrimSpace(parts[0])),
		Strategy: Strategy(strings.ToLower(strings.TrimSpace(parts[1]))),
		Token:    strings.TrimSpace(parts[2]),
		Pattern:  parts[3],
	}
	if spec.Name == "" || spec.Token == "" || spec.Pattern == "" {
		return DetectorSpec{}, fmt.Errorf("detector %q: name, token and pattern are required", line)
	}
	if spec.Strategy != StrategyMarker && spec.Strategy != StrategyPseudonym {
		return DetectorSpec{}, fmt.Errorf("detector %s: unknown strategy %q", spec.Name, spec.Strategy)
	}
	return spec, nil
}

// CompileDetectors compiles specs in order. A spec whose pattern does not
// compile, whose name repeats an earlier detector, or whose own replacement
// would be matched again by the detector set is skipped with a warning.
func CompileDetectors(specs []DetectorSpec) []*Detector {
	detectors := make([]*Detector, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if seen[spec.Name] {
			logger.Warn("detector %s: duplicate name, skipping", spec.Name)
			continue
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			logger.Warn("detector %s: invalid pattern, skipping: %v", spec.Name, err)
			continue
		}
		d := &Detector{
			Name:     spec.Name,
			Strategy: spec.Strategy,
			Token:    spec.Token,
			FoldCase: spec.FoldCase,
			re:       re,
			accept:   spec.Accept,
		}
		detectors = append(detectors, d)
		seen[spec.Name] = true
	}

	out := make([]*Detector, 0, len(detectors))
	for _, d := range detectors {
		if name, ok := rematchedBy(detectors, sampleReplacement(d)); ok {
			logger.Warn("detector %s: replacement %q is matched by %s, skipping", d.Name, sampleReplacement(d), name)
			continue
		}
		out = append(out, d)
	}
	return out
}

// ParseExtraDetectors parses user detector lines, skipping malformed ones with a warning.
func ParseExtraDetectors(lines []string) []DetectorSpec {
	specs := make([]DetectorSpec, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		spec, err := ParseDetectorSpec(line)
		if err != nil {
			logger.Warn("%v, skipping", err)
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

func sampleReplacement(d *Detector) string {
	if d.Strategy == StrategyPseudonym {
		return d.Token + "_0a1b2c3d4e"
	}
	return d.Token
}

func rematchedBy(detectors []*Detector, replacement string) (string, bool) {
	for _, d := range detectors {
		if len(d.Find(replacement)) > 0 {
			return d.Name, true
		}
	}
	return "", false
}

// looksLikeCredential rejects long dictionary-like runs (words, paths) that
// share the base64 alphabet with real secrets.
func looksLikeCredential(s string) bool {
	var hasDigit, hasLetter bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	return hasDigit && hasLetter && shannonEntropy(s) >= minTokenEntropy
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}
