// Package query is the console screen that runs retrieval queries and shows
// the candidates with the policy verdict.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
)

// View represents the query view with input, candidate list, verdict and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ChunkList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	ctx       context.Context

	result     *domain.RetrievalResult
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = navigating candidates
}

// NewView creates a new query view.
func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewChunkList(s),
		statusbar:  status.NewBar(s, km),
		retrieval:  retrieval,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Back):
		if !v.focusInput && v.list.Expanded() {
			v.list.ToggleExpanded()
			return v, nil
		}
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case key.Matches(msg, v.keymap.ToggleMode):
		mode := v.input.ToggleMode()
		v.statusbar.SetMessage("Mode: " + mode.String())
		return v, func() tea.Msg { return messages.ModeChanged{Mode: mode} }
	}

	if v.focusInput {
		return v, v.handleTyping(msg)
	}

	switch {
	case key.Matches(msg, v.keymap.Expand):
		v.list.ToggleExpanded()
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
	case key.Matches(msg, v.keymap.Top):
		v.list.SetSelected(0)
	case key.Matches(msg, v.keymap.Bottom):
		v.list.SetSelected(v.list.Count() - 1)
	case key.Matches(msg, v.keymap.NewQuery):
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

// handleTyping feeds keys to the input until Submit sends a non-empty query.
func (v *View) handleTyping(msg tea.KeyMsg) tea.Cmd {
	if !key.Matches(msg, v.keymap.Submit) {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}
	text := strings.TrimSpace(v.input.Value())
	if text == "" {
		return nil
	}
	v.statusbar.SetState(status.StateQuerying)
	v.focusInput = false
	v.input.Blur()
	return v.performQuery(text, v.input.Mode())
}

// performQuery runs the query off the update loop.
func (v *View) performQuery(text string, mode domain.Mode) tea.Cmd {
	retrieval, ctx := v.retrieval, v.ctx
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		result, err := retrieval.Query(ctx, text, mode, 0)
		return messages.QueryCompleted{Result: result, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.result = msg.Result
	v.list.SetChunks(msg.Result.Chunks)
	v.statusbar.SetResult(msg.Result)
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	// Allow the query to be corrected.
	v.focusInput = true
	v.input.Focus()
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("Whis"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != nil {
		sections = append(sections, v.renderVerdict(), "", v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderVerdict() string {
	r := v.result
	var b strings.Builder
	b.WriteString(v.styles.Verdict(r.Admitted()))
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %s mode, k=%d, generation %d", r.Mode, r.K, r.Generation)))
	if len(r.Verdict.Reasons) > 0 {
		b.WriteString("\n")
		b.WriteString(v.styles.Warning.Render("reasons: " + strings.Join(r.Verdict.Reasons, ", ")))
	}
	if r.Truncated {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("query was truncated before embedding"))
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-12)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(text string) {
	v.input.SetValue(text)
}

// Mode returns the active retrieval mode.
func (v *View) Mode() domain.Mode {
	return v.input.Mode()
}

// Result returns the last retrieval result.
func (v *View) Result() *domain.RetrievalResult {
	return v.result
}

// SelectedIndex returns the index of the selected candidate.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Expanded reports whether the selected candidate is shown in full.
func (v *View) Expanded() bool {
	return v.list.Expanded()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset clears the query and results. The mode is kept.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Reset()
	v.input.Focus()
	v.list.SetChunks(nil)
	v.result = nil
	v.err = nil
	v.statusbar.Clear()
}
