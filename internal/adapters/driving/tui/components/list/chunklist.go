// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
)

// ChunkList displays retrieved chunks in a navigable list. The selected
// chunk can be expanded to show its full text.
type ChunkList struct {
	chunks   []domain.ScoredChunk
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates a new chunk list component.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ChunkList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *ChunkList) View() string {
	if len(l.chunks) == 0 {
		return l.styles.Muted.Render("No candidates")
	}

	if l.expanded {
		return l.renderExpanded(&l.chunks[l.selected])
	}

	lines := make([]string, 0, len(l.chunks)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Candidates (%d)", len(l.chunks))), "")

	// Each chunk takes three lines
	visibleCount := (l.height - 4) / 3
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(l.chunks))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderChunk(i, &l.chunks[i]))
	}

	return strings.Join(lines, "\n")
}

// renderChunk formats one candidate as title and score, source and tags, preview.
func (l *ChunkList) renderChunk(index int, sc *domain.ScoredChunk) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	title := sc.Chunk.Title
	if title == "" {
		title = sc.Chunk.ChunkID
	}
	maxTitleLen := max(l.width-20, 10)
	title = truncate(title, maxTitleLen)
	score := fmt.Sprintf("%.3f", sc.Score)

	var titleLine string
	if index == l.selected {
		titleLine = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, score))
	} else {
		titleLine = l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
			l.styles.Muted.Render(score)
	}

	sourceLine := l.styles.Muted.Render("    "+sc.Chunk.SourcePath) + "  " +
		l.styles.Tag.Render(strings.Join(sc.Chunk.Tags, " "))

	preview := strings.Join(strings.Fields(sc.Chunk.Text), " ")
	previewLine := l.styles.Normal.Render("    " + truncate(preview, max(l.width-6, 20)))

	return titleLine + "\n" + sourceLine + "\n" + previewLine
}

func (l *ChunkList) renderExpanded(sc *domain.ScoredChunk) string {
	c := &sc.Chunk
	lines := []string{
		l.styles.Subtitle.Render(c.Title),
		l.styles.Muted.Render(fmt.Sprintf("%s  chunk %d  score %.3f", c.SourcePath, c.Provenance.ChunkIndex, sc.Score)),
		l.styles.Tag.Render(strings.Join(c.Tags, " ")),
		"",
		c.Text,
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetChunks replaces the list contents.
func (l *ChunkList) SetChunks(chunks []domain.ScoredChunk) {
	l.chunks = chunks
	l.selected = 0
	l.expanded = false
}

// Chunks returns the current chunks.
func (l *ChunkList) Chunks() []domain.ScoredChunk {
	return l.chunks
}

// Selected returns the index of the selected chunk.
func (l *ChunkList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index.
func (l *ChunkList) SetSelected(index int) {
	if index >= 0 && index < len(l.chunks) {
		l.selected = index
	}
}

// SelectedChunk returns the selected chunk, or nil if the list is empty.
func (l *ChunkList) SelectedChunk() *domain.ScoredChunk {
	if len(l.chunks) == 0 || l.selected < 0 || l.selected >= len(l.chunks) {
		return nil
	}
	return &l.chunks[l.selected]
}

// ToggleExpanded shows or hides the full text of the selected chunk.
func (l *ChunkList) ToggleExpanded() {
	if len(l.chunks) > 0 {
		l.expanded = !l.expanded
	}
}

// Expanded reports whether the selected chunk is shown in full.
func (l *ChunkList) Expanded() bool {
	return l.expanded
}

// MoveUp moves selection up.
func (l *ChunkList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ChunkList) MoveDown() {
	if l.selected < len(l.chunks)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ChunkList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of chunks.
func (l *ChunkList) Count() int {
	return len(l.chunks)
}
