package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/whis/internal/core/domain"
)

var (
	admittedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	rejectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// snippetLength is the number of characters of chunk text shown per result.
const snippetLength = 160

// printer writes command output, styled only when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) printer {
	f, ok := w.(*os.File)
	return printer{w: w, color: ok && term.IsTerminal(int(f.Fd()))}
}

func (p printer) render(style lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return style.Render(text)
}

func (p printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p printer) result(res *domain.RetrievalResult) {
	header := fmt.Sprintf("(%s, k=%d, generation %d)", res.Mode, res.K, res.Generation)
	if res.Admitted() {
		p.printf("%s %s\n", p.render(admittedStyle, "ADMITTED"), p.render(dimStyle, header))
	} else {
		p.printf("%s %s\n", p.render(rejectedStyle, "REJECTED"), p.render(dimStyle, header))
		p.printf("  reasons: %s\n", strings.Join(res.Verdict.Reasons, ", "))
	}
	if res.Truncated {
		p.printf("  query truncated before embedding\n")
	}
	p.printf("\n")

	if len(res.Chunks) == 0 {
		p.printf("No candidates.\n")
		return
	}
	for i := range res.Chunks {
		c := &res.Chunks[i].Chunk
		title := c.Title
		if title == "" {
			title = c.ChunkID
		}
		p.printf("  [%d] %s (%.3f)\n", i+1, p.render(titleStyle, title), res.Chunks[i].Score)
		p.printf("      %s\n", p.render(dimStyle, c.SourcePath+"  "+strings.Join(c.Tags, " ")))
		p.printf("      %s\n", snippet(c.Text, snippetLength))
	}
}

func (p printer) generations(gens []domain.Generation, current int64) {
	if len(gens) == 0 {
		p.printf("No generations. Run 'whis build <dir>' to create one.\n")
		return
	}
	p.printf("  %-4s %-4s %-8s %-6s %-18s %-14s %s\n", "", "ID", "CHUNKS", "DIM", "MODEL", "SALT", "CREATED")
	for i := range gens {
		g := &gens[i]
		marker := ""
		if g.ID == current {
			marker = "*"
		}
		salt := g.SaltEpoch
		if !g.SecureSalt {
			salt += " (dev)"
		}
		p.printf("  %-4s %-4d %-8d %-6d %-18s %-14s %s\n",
			marker, g.ID, g.ChunkCount, g.Dimension, g.EmbeddingModel, salt,
			g.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func (p printer) ingestReport(r *domain.IngestReport) {
	p.printf("Ingest run %s\n", r.RunID)
	p.printf("  Documents: %d\n", r.Documents)
	p.printf("  Chunks: %d", r.Chunks)
	if r.Duplicates > 0 {
		p.printf(" (%d duplicates dropped)", r.Duplicates)
	}
	p.printf("\n")
	for _, name := range slices.Sorted(maps.Keys(r.RedactionTotals)) {
		p.printf("  Redacted %s: %d\n", name, r.RedactionTotals[name])
	}
	for _, s := range r.Skipped {
		p.printf("  %s %s: %s\n", p.render(rejectedStyle, "skipped"), s.SourcePath, s.Reason)
	}
	if !r.SecureSalt {
		p.printf("  %s\n", p.render(rejectedStyle, "pseudonyms use the development key"))
	}
}

func (p printer) generation(verb string, g *domain.Generation) {
	p.printf("%s generation %d (%d chunks, %s, dim %d)\n", verb, g.ID, g.ChunkCount, g.EmbeddingModel, g.Dimension)
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
