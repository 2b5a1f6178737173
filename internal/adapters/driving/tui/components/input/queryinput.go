// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
)

// charLimit caps typed input. Longer queries are truncated again by the
// retrieval service before embedding.
const charLimit = 4000

// QueryInput wraps a bubbles textinput and shows the active retrieval mode.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	mode      domain.Mode
	width     int
}

// NewQueryInput creates a new query input in teacher mode.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about a technique, alert or playbook..."
	ti.Focus()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &QueryInput{
		textinput: ti,
		styles:    s,
		mode:      domain.ModeTeacher,
		width:     50,
	}
}

// Init initialises the input.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the mode label and the input.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render(modeLabel(q.mode) + " ")
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

func modeLabel(m domain.Mode) string {
	s := m.String()
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:] + ":"
}

// Mode returns the active retrieval mode.
func (q *QueryInput) Mode() domain.Mode {
	return q.mode
}

// SetMode sets the retrieval mode.
func (q *QueryInput) SetMode(m domain.Mode) {
	q.mode = m
}

// ToggleMode switches between teacher and assistant mode and returns the new mode.
func (q *QueryInput) ToggleMode() domain.Mode {
	if q.mode == domain.ModeAssistant {
		q.mode = domain.ModeTeacher
	} else {
		q.mode = domain.ModeAssistant
	}
	return q.mode
}

// Value returns the trimmed input value.
func (q *QueryInput) Value() string {
	return strings.TrimSpace(q.textinput.Value())
}

// SetValue sets the input value.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	// Account for the mode label and padding
	inputWidth := width - 16
	if inputWidth < 20 {
		inputWidth = 20
	}
	q.textinput.Width = inputWidth
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the input. The mode is kept.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
}
