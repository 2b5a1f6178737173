// Package generations lists committed index generations and moves the
// current pointer between them.
package generations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
)

// ErrNoIndexService is reported when the view was built without an index service.
var ErrNoIndexService = errors.New("index service not available")

// PruneKeep is how many of the newest generations a prune keeps.
const PruneKeep = 5

// View is the generations screen.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model
	index  driving.IndexService
	ctx    context.Context

	generations []domain.Generation
	current     int64
	selected    int
	width       int
	height      int
	ready       bool
	err         error
	loading     bool
	notice      string

	// confirmPrune is set by the first prune key press; the second runs it.
	confirmPrune bool
}

// NewView creates the screen; nil styles or keymap take the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap, index driving.IndexService) *View {
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
		index:  index,
		ctx:    context.Background(),
	}
}

func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the list.
func (v *View) Init() tea.Cmd {
	return v.reload()
}

func (v *View) reload() tea.Cmd {
	v.loading = true
	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.GenerationsLoaded{Err: ErrNoIndexService}
		}
		gens, err := index.Generations(ctx)
		if err != nil {
			return messages.GenerationsLoaded{Err: err}
		}
		msg := messages.GenerationsLoaded{Generations: gens}
		cur, err := index.Current(ctx)
		switch {
		case err == nil:
			msg.Current = cur.ID
		case !errors.Is(err, domain.ErrNoGeneration):
			return messages.GenerationsLoaded{Err: err}
		}
		return msg
	}
}

func (v *View) activate(id int64) tea.Cmd {
	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.GenerationActivated{ID: id, Err: ErrNoIndexService}
		}
		return messages.GenerationActivated{ID: id, Err: index.Activate(ctx, id)}
	}
}

func (v *View) prune() tea.Cmd {
	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.GenerationsPruned{Err: ErrNoIndexService}
		}
		ids, err := index.Prune(ctx, PruneKeep)
		return messages.GenerationsPruned{IDs: ids, Err: err}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v, v.handleKey(msg)

	case messages.GenerationsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.generations = msg.Generations
			v.current = msg.Current
			v.selected = min(v.selected, max(len(v.generations)-1, 0))
		}

	case messages.GenerationActivated:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Serving generation %d", msg.ID)
		return v, v.reload()

	case messages.GenerationsPruned:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = pruneNotice(msg.IDs)
		return v, v.reload()
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	confirming := v.confirmPrune
	v.confirmPrune = false

	last := max(len(v.generations)-1, 0)
	switch {
	case key.Matches(msg, v.keys.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case key.Matches(msg, v.keys.Up):
		v.selected = max(v.selected-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.selected = min(v.selected+1, last)
	case key.Matches(msg, v.keys.Top):
		v.selected = 0
	case key.Matches(msg, v.keys.Bottom):
		v.selected = last
	case key.Matches(msg, v.keys.Activate):
		if g := v.SelectedGeneration(); g != nil && g.ID != v.current {
			return v.activate(g.ID)
		}
	case key.Matches(msg, v.keys.Prune):
		if confirming {
			v.notice = ""
			return v.prune()
		}
		v.confirmPrune = true
		v.notice = fmt.Sprintf("Press %s again to delete all but the newest %d generations",
			v.keys.Prune.Help().Key, PruneKeep)
		return nil
	case key.Matches(msg, v.keys.Reload):
		v.notice = ""
		return v.reload()
	}
	if confirming {
		v.notice = ""
	}
	return nil
}

func pruneNotice(ids []int64) string {
	if len(ids) == 0 {
		return "Nothing to prune"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "Pruned generations " + strings.Join(parts, ", ")
}

func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Generations"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading generations..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.generations) == 0:
		b.WriteString(v.styles.Muted.Render("No generations built yet."))
	default:
		for i := range v.generations {
			b.WriteString(v.row(i))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if v.notice != "" {
		style := v.styles.Subtitle
		if v.confirmPrune {
			style = v.styles.Warning
		}
		b.WriteString("\n" + style.Render(v.notice) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.help.View(v.keys.For(keymap.ScreenGenerations)))
	return b.String()
}

// row renders: cursor, current marker, id, chunk count, model, creation time.
func (v *View) row(i int) string {
	g := &v.generations[i]
	cursor, marker := "  ", " "
	if i == v.selected {
		cursor = "> "
	}
	if g.ID == v.current {
		marker = "*"
	}

	line := fmt.Sprintf("%s%s %4d  %6d chunks  %-20s %s",
		cursor, marker, g.ID, g.ChunkCount, g.EmbeddingModel, g.CreatedAt.Format("2006-01-02 15:04"))
	if !g.SecureSalt {
		line += "  dev salt"
	}
	if i == v.selected {
		return v.styles.Selected.Render(line)
	}
	return v.styles.Normal.Render(line)
}

func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.help.Width = width
	v.ready = true
}

func (v *View) Generations() []domain.Generation { return v.generations }

// Current is the served generation's ID, 0 if none.
func (v *View) Current() int64 { return v.current }

func (v *View) SelectedIndex() int { return v.selected }

// SelectedGeneration returns nil when the list is empty.
func (v *View) SelectedGeneration() *domain.Generation {
	if v.selected < 0 || v.selected >= len(v.generations) {
		return nil
	}
	return &v.generations[v.selected]
}

func (v *View) Err() error { return v.err }
