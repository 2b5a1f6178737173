// Package status renders the one-line bar under the query console.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady    State = "ready"
	StateQuerying State = "querying"
	StateError    State = "error"
	StateResults  State = "results"
)

// Bar shows the query state or last verdict on the left and key hints on
// the right.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	help    help.Model
	state   State
	message string
	result  *domain.RetrievalResult
	width   int
}

// NewBar creates a bar; nil arguments take the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	h := help.New()
	h.ShortSeparator = " | "
	h.Styles.ShortKey = s.Normal
	h.Styles.ShortDesc = s.Muted
	h.Styles.ShortSeparator = s.Muted

	return &Bar{styles: s, keymap: km, help: h, state: StateReady, width: 80}
}

func (s *Bar) View() string {
	left := s.summary()
	right := s.hints()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) summary() string {
	switch s.state {
	case StateQuerying:
		return s.styles.Muted.Render("Retrieving...")
	case StateError:
		if s.message == "" {
			return s.styles.Error.Render("Error")
		}
		return s.styles.Error.Render("Error: " + s.message)
	case StateResults:
		if r := s.result; r != nil {
			verdict := "rejected"
			if r.Admitted() {
				verdict = "admitted"
			}
			return s.styles.Normal.Render(fmt.Sprintf("generation %d | %s | %d candidates",
				r.Generation, verdict, len(r.Chunks)))
		}
	case StateReady:
	}
	if s.message != "" {
		return s.styles.Muted.Render(s.message)
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) hints() string {
	screen := keymap.ScreenQuery
	if s.state == StateResults {
		screen = keymap.ScreenResults
	}
	return s.help.ShortHelpView(s.keymap.For(screen).ShortHelp())
}

func (s *Bar) SetState(state State) { s.state = state }
func (s *Bar) State() State         { return s.state }

func (s *Bar) SetMessage(message string) { s.message = message }
func (s *Bar) Message() string           { return s.message }

// SetResult records the last retrieval result and switches to StateResults.
func (s *Bar) SetResult(result *domain.RetrievalResult) {
	s.result = result
	s.state = StateResults
}

func (s *Bar) SetWidth(width int) { s.width = width }
func (s *Bar) Width() int         { return s.width }

// Clear returns the bar to Ready with no message.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.result = nil
}
