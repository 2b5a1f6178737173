package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/core/domain"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView_Defaults(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keys)
	assert.Len(t, view.items, 4)
	assert.Zero(t, view.Selected())
	assert.Nil(t, view.Init())
}

func TestView_WindowSize(t *testing.T) {
	view := NewView(nil, nil)
	assert.Equal(t, "Initialising...", view.View())

	_, cmd := view.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
}

func TestView_Navigate(t *testing.T) {
	view := NewView(nil, nil)

	steps := []struct {
		msg  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, 0},
		{runes("j"), 1},
		{tea.KeyMsg{Type: tea.KeyDown}, 2},
		{runes("j"), 3},
		{runes("j"), 3},
		{runes("k"), 2},
		{runes("g"), 0},
		{runes("G"), 3},
	}
	for _, s := range steps {
		view.Update(s.msg)
		assert.Equal(t, s.want, view.Selected(), "after %q", s.msg.String())
	}
}

func TestView_Select(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want messages.ViewType
	}{
		{"enter on first", []tea.KeyMsg{{Type: tea.KeyEnter}}, messages.ViewQuery},
		{"enter after moving", []tea.KeyMsg{runes("j"), {Type: tea.KeyEnter}}, messages.ViewGenerations},
		{"digit shortcut", []tea.KeyMsg{runes("3")}, messages.ViewHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewView(nil, nil)
			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = view.Update(k)
			}
			require.NotNil(t, cmd)
			assert.Equal(t, messages.ViewChanged{View: tt.want}, cmd())
		})
	}
}

func TestView_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runes("q"), runes("4"), {Type: tea.KeyCtrlC}} {
		view := NewView(nil, nil)
		_, cmd := view.Update(k)
		require.NotNil(t, cmd, k.String())
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestView_IgnoresOutOfRangeDigits(t *testing.T) {
	view := NewView(nil, nil)

	_, cmd := view.Update(runes("9"))
	assert.Nil(t, cmd)
	_, cmd = view.Update(runes("0"))
	assert.Nil(t, cmd)
}

func TestView_Render(t *testing.T) {
	view := NewView(nil, nil)
	view.SetDimensions(100, 24)

	out := view.View()
	assert.Contains(t, out, "Whis")
	assert.Contains(t, out, "> 1  Query")
	assert.Contains(t, out, "teacher or assistant mode")
	assert.Contains(t, out, "2  Generations")
	assert.Contains(t, out, "No generation is being served")
	assert.Contains(t, out, "quit")
}

func TestView_RenderServingGeneration(t *testing.T) {
	view := NewView(nil, nil)
	view.SetDimensions(100, 24)

	view.SetGeneration(&domain.Generation{ID: 4, ChunkCount: 120, EmbeddingModel: "hashing-384", SecureSalt: true})
	assert.Contains(t, view.View(), "Serving generation 4: 120 chunks, hashing-384")
	assert.NotContains(t, view.View(), "development salt")

	view.SetGeneration(&domain.Generation{ID: 5, EmbeddingModel: "hashing-384"})
	assert.Contains(t, view.View(), "development salt")
}
