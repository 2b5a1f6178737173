// Package menu is the console's start screen.
package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
)

// Item is one menu entry. An entry without a target view quits.
type Item struct {
	Label string
	Blurb string
	View  messages.ViewType
	Quit  bool
}

var defaultItems = []Item{
	{Label: "Query", Blurb: "ask the served generation in teacher or assistant mode", View: messages.ViewQuery},
	{Label: "Generations", Blurb: "list, activate and prune index generations", View: messages.ViewGenerations},
	{Label: "Help", Blurb: "key bindings", View: messages.ViewHelp},
	{Label: "Quit", Quit: true},
}

// View lists the entries and the generation currently served.
type View struct {
	styles     *styles.Styles
	keys       *keymap.KeyMap
	help       help.Model
	items      []Item
	selected   int
	generation *domain.Generation
	width      int
	height     int
	ready      bool
}

// NewView creates the menu; nil arguments take the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keys:   km,
		help:   help.New(),
		items:  defaultItems,
		width:  80,
		height: 24,
	}
}

func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	last := len(v.items) - 1
	switch {
	case key.Matches(msg, v.keys.Quit):
		return tea.Quit
	case key.Matches(msg, v.keys.Up):
		v.selected = max(v.selected-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.selected = min(v.selected+1, last)
	case key.Matches(msg, v.keys.Top):
		v.selected = 0
	case key.Matches(msg, v.keys.Bottom):
		v.selected = last
	case key.Matches(msg, v.keys.Select):
		return v.choose(v.selected)
	default:
		// Entries are also reachable by their position, 1-based.
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(v.items) {
			v.selected = n - 1
			return v.choose(v.selected)
		}
	}
	return nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Whis"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Sanitised knowledge retrieval for security operations"))
	b.WriteString("\n")
	b.WriteString(v.serving())
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%d  %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(label))
			if item.Blurb != "" {
				b.WriteString(v.styles.Muted.Render("  " + item.Blurb))
			}
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.help.View(v.keys.For(keymap.ScreenMenu)))
	return b.String()
}

func (v *View) serving() string {
	g := v.generation
	if g == nil {
		return v.styles.Warning.Render("No generation is being served. Run 'whis build <dir>' first.")
	}
	line := fmt.Sprintf("Serving generation %d: %d chunks, %s", g.ID, g.ChunkCount, g.EmbeddingModel)
	if !g.SecureSalt {
		return v.styles.Warning.Render(line + ", development salt")
	}
	return v.styles.Muted.Render(line)
}

// SetGeneration sets the generation shown as served; nil means none.
func (v *View) SetGeneration(g *domain.Generation) {
	v.generation = g
}

func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.help.Width = width
	v.ready = true
}

// Selected returns the highlighted entry's index.
func (v *View) Selected() int {
	return v.selected
}
