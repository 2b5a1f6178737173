package sanitizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	headingGap = regexp.MustCompile("([^\n])\n(#{2,6} )")
)

// Normalize applies NFKC, converts CRLF and lone CR to LF, trims trailing
// whitespace on every line and collapses three or more newlines to two.
// It is deterministic and idempotent.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// spaceHeadings puts a blank line before H2-H6 headings that directly follow text,
// so the chunker sees consistent "\n\n## " boundaries.
func spaceHeadings(text string) string {
	return headingGap.ReplaceAllString(text, "$1\n\n$2")
}
