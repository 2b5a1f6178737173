package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/core/domain"
)

func TestNewQueryInput(t *testing.T) {
	in := NewQueryInput(styles.DefaultStyles())

	require.NotNil(t, in)
	assert.Equal(t, "", in.Value())
	assert.True(t, in.Focused())
	assert.Equal(t, domain.ModeTeacher, in.Mode())
}

func TestNewQueryInput_NilStyles(t *testing.T) {
	in := NewQueryInput(nil)

	require.NotNil(t, in)
	assert.NotNil(t, in.styles)
}

func TestQueryInput_Init(t *testing.T) {
	assert.NotNil(t, NewQueryInput(nil).Init())
}

func TestQueryInput_Update(t *testing.T) {
	in := NewQueryInput(nil)

	updated, _ := in.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t1110")})

	assert.Equal(t, in, updated)
	assert.Equal(t, "t1110", in.Value())
}

func TestQueryInput_ValueIsTrimmed(t *testing.T) {
	in := NewQueryInput(nil)
	in.SetValue("  brute force  ")

	assert.Equal(t, "brute force", in.Value())
}

func TestQueryInput_ToggleMode(t *testing.T) {
	in := NewQueryInput(nil)

	assert.Equal(t, domain.ModeAssistant, in.ToggleMode())
	assert.Contains(t, in.View(), "Assistant:")
	assert.Equal(t, domain.ModeTeacher, in.ToggleMode())
	assert.Contains(t, in.View(), "Teacher:")
}

func TestQueryInput_SetMode(t *testing.T) {
	in := NewQueryInput(nil)
	in.SetMode(domain.ModeAssistant)

	assert.Equal(t, domain.ModeAssistant, in.Mode())
}

func TestQueryInput_FocusBlur(t *testing.T) {
	in := NewQueryInput(nil)

	in.Blur()
	assert.False(t, in.Focused())

	in.Focus()
	assert.True(t, in.Focused())
}

func TestQueryInput_SetWidth(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		wantInput int
	}{
		{"wide terminal", 100, 84},
		{"narrow terminal uses minimum", 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewQueryInput(nil)
			in.SetWidth(tt.width)

			assert.Equal(t, tt.width, in.Width())
			assert.Equal(t, tt.wantInput, in.textinput.Width)
		})
	}
}

func TestQueryInput_ResetKeepsMode(t *testing.T) {
	in := NewQueryInput(nil)
	in.SetValue("query")
	in.SetMode(domain.ModeAssistant)

	in.Reset()

	assert.Equal(t, "", in.Value())
	assert.Equal(t, domain.ModeAssistant, in.Mode())
}
