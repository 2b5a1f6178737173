package query

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/core/domain"
)

type stubRetrieval struct {
	result *domain.RetrievalResult
	err    error

	gotText string
	gotMode domain.Mode
	gotK    int
}

func (s *stubRetrieval) Query(_ context.Context, text string, mode domain.Mode, k int) (*domain.RetrievalResult, error) {
	s.gotText, s.gotMode, s.gotK = text, mode, k
	return s.result, s.err
}

func (s *stubRetrieval) Generation() *domain.Generation {
	return nil
}

func rejectedResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Query:      "lateral movement",
		Mode:       domain.ModeAssistant,
		K:          8,
		Generation: 3,
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.SanitizedChunk{ChunkID: "c1", Title: "Pass the hash", Text: "body one", SourcePath: "a.md"}, Score: 0.91},
			{Chunk: domain.SanitizedChunk{ChunkID: "c2", Title: "PsExec", Text: "body two", SourcePath: "b.md"}, Score: 0.72},
		},
		Verdict: domain.Verdict{Met: false, Reasons: []string{domain.ReasonMissingToolReference}},
		Trail:   []domain.QueryState{domain.StateQueried, domain.StateCandidatesRetrieved, domain.StatePolicyEvaluated, domain.StateRejected},
	}
}

func press(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.True(t, view.InputFocused())
	assert.Equal(t, domain.ModeTeacher, view.Mode())
	assert.False(t, view.Ready())
	assert.Equal(t, "Initialising...", view.View())
	assert.NotNil(t, view.Init())
}

func TestView_EnterRunsQuery(t *testing.T) {
	stub := &stubRetrieval{result: rejectedResult()}
	view := NewView(nil, nil, stub)
	view.SetQuery("lateral movement")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, view.InputFocused())

	msg := cmd()
	completed, ok := msg.(messages.QueryCompleted)
	require.True(t, ok)
	require.NoError(t, completed.Err)
	assert.Equal(t, "lateral movement", stub.gotText)
	assert.Equal(t, domain.ModeTeacher, stub.gotMode)
	assert.Equal(t, 0, stub.gotK)
}

func TestView_EnterWithEmptyQuery(t *testing.T) {
	view := NewView(nil, nil, &stubRetrieval{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, view.InputFocused())
}

func TestView_NoRetrievalService(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetQuery("phishing")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	errMsg, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, errMsg.Err, ErrNoRetrievalService)

	view.Update(errMsg)
	assert.ErrorIs(t, view.Err(), ErrNoRetrievalService)
	assert.True(t, view.InputFocused())
}

func TestView_TabTogglesMode(t *testing.T) {
	stub := &stubRetrieval{result: rejectedResult()}
	view := NewView(nil, nil, stub)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ModeChanged{Mode: domain.ModeAssistant}, cmd())
	assert.Equal(t, domain.ModeAssistant, view.Mode())

	view.SetQuery("psexec")
	_, cmd = view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	assert.Equal(t, domain.ModeAssistant, stub.gotMode)
}

func TestView_QueryCompletedShowsVerdict(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(100, 40)

	view.Update(messages.QueryCompleted{Result: rejectedResult()})

	require.NotNil(t, view.Result())
	assert.NoError(t, view.Err())
	assert.False(t, view.InputFocused())

	out := view.View()
	assert.Contains(t, out, "REJECTED")
	assert.Contains(t, out, domain.ReasonMissingToolReference)
	assert.Contains(t, out, "generation 3")
	assert.Contains(t, out, "Pass the hash")
}

func TestView_QueryCompletedError(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(100, 40)

	view.Update(messages.QueryCompleted{Err: errors.New("embedder down")})

	assert.EqualError(t, view.Err(), "embedder down")
	assert.Nil(t, view.Result())
	assert.Contains(t, view.View(), "embedder down")
}

func TestView_NavigateAndExpand(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.SetDimensions(100, 40)
	view.Update(messages.QueryCompleted{Result: rejectedResult()})

	view.Update(press('j'))
	assert.Equal(t, 1, view.SelectedIndex())
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex(), "stops at last candidate")
	view.Update(press('k'))
	assert.Equal(t, 0, view.SelectedIndex())

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, view.Expanded())
	assert.Contains(t, view.View(), "body one")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd, "esc collapses before leaving")
	assert.False(t, view.Expanded())

	view.Update(press('G'))
	assert.Equal(t, 1, view.SelectedIndex())
	view.Update(press('g'))
	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_BlankQueryIgnored(t *testing.T) {
	stub := &stubRetrieval{result: rejectedResult()}
	view := NewView(nil, nil, stub)
	view.SetQuery("   ")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, view.InputFocused())
}

func TestView_NewQuery(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.Update(messages.QueryCompleted{Result: rejectedResult()})
	view.SetQuery("old")

	view.Update(press('n'))

	assert.True(t, view.InputFocused())
	assert.Empty(t, view.Query())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_ResetKeepsMode(t *testing.T) {
	view := NewView(nil, nil, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyTab})
	view.Update(messages.QueryCompleted{Result: rejectedResult()})

	view.Reset()

	assert.Nil(t, view.Result())
	assert.True(t, view.InputFocused())
	assert.Equal(t, domain.ModeAssistant, view.Mode())
}

func TestView_WithContext(t *testing.T) {
	view := NewView(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Same(t, view, view.WithContext(ctx))
	assert.Equal(t, ctx, view.ctx)
}
