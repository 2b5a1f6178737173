package generations

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/core/domain"
)

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct {
	gens        []domain.Generation
	current     int64
	listErr     error
	activateErr error
	activated   []int64
	pruneErr    error
	pruneKeep   int
}

func (m *MockIndexService) Build(context.Context, domain.BuildRequest) (*domain.Generation, error) {
	return nil, errors.New("not implemented")
}

func (m *MockIndexService) Generations(context.Context) ([]domain.Generation, error) {
	return m.gens, m.listErr
}

func (m *MockIndexService) Current(context.Context) (*domain.Generation, error) {
	for i := range m.gens {
		if m.gens[i].ID == m.current {
			return &m.gens[i], nil
		}
	}
	return nil, domain.ErrNoGeneration
}

func (m *MockIndexService) Activate(_ context.Context, id int64) error {
	if m.activateErr != nil {
		return m.activateErr
	}
	m.activated = append(m.activated, id)
	m.current = id
	return nil
}

func (m *MockIndexService) Export(context.Context, int64, string) (*domain.Generation, error) {
	return nil, errors.New("not implemented")
}

func (m *MockIndexService) Prune(_ context.Context, keep int) ([]int64, error) {
	m.pruneKeep = keep
	if m.pruneErr != nil {
		return nil, m.pruneErr
	}
	var pruned []int64
	for len(m.gens) > keep {
		pruned = append(pruned, m.gens[0].ID)
		m.gens = m.gens[1:]
	}
	return pruned, nil
}

func (m *MockIndexService) Import(context.Context, string) (*domain.Generation, error) {
	return nil, errors.New("not implemented")
}

func twoGenerations() *MockIndexService {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &MockIndexService{
		gens: []domain.Generation{
			{ID: 1, ChunkCount: 40, EmbeddingModel: "hashing-384", CreatedAt: created, SecureSalt: true},
			{ID: 2, ChunkCount: 55, EmbeddingModel: "hashing-384", CreatedAt: created.Add(time.Hour)},
		},
		current: 2,
	}
}

func load(t *testing.T, v *View) {
	t.Helper()
	cmd := v.Init()
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.SelectedGeneration())
}

func TestView_Load(t *testing.T) {
	view := NewView(nil, nil, twoGenerations())

	load(t, view)

	require.NoError(t, view.Err())
	assert.Len(t, view.Generations(), 2)
	assert.Equal(t, int64(2), view.Current())

	out := view.View()
	assert.Contains(t, out, "*    2")
	assert.Contains(t, out, "55 chunks")
	assert.Contains(t, out, "dev salt")
}

func TestView_LoadWithoutCurrent(t *testing.T) {
	mock := &MockIndexService{}
	view := NewView(nil, nil, mock)

	load(t, view)

	require.NoError(t, view.Err())
	assert.Equal(t, int64(0), view.Current())
	assert.Contains(t, view.View(), "No generations built yet.")
}

func TestView_LoadError(t *testing.T) {
	view := NewView(nil, nil, &MockIndexService{listErr: errors.New("registry locked")})

	load(t, view)

	assert.EqualError(t, view.Err(), "registry locked")
	assert.Contains(t, view.View(), "Error: registry locked")
}

func TestView_NoIndexService(t *testing.T) {
	view := NewView(nil, nil, nil)

	load(t, view)

	assert.ErrorIs(t, view.Err(), ErrNoIndexService)
}

func TestView_Navigate(t *testing.T) {
	view := NewView(nil, nil, twoGenerations())
	load(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.SelectedIndex())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_Activate(t *testing.T) {
	mock := twoGenerations()
	view := NewView(nil, nil, mock)
	load(t, view)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, messages.GenerationActivated{ID: 1}, msg)
	assert.Equal(t, []int64{1}, mock.activated)

	_, cmd = view.Update(msg)
	require.NotNil(t, cmd, "activation reloads the list")
	view.Update(cmd())

	assert.Equal(t, int64(1), view.Current())
	assert.Contains(t, view.View(), "Serving generation 1")
}

func TestView_ActivateCurrentIsNoop(t *testing.T) {
	mock := twoGenerations()
	view := NewView(nil, nil, mock)
	load(t, view)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Nil(t, cmd)
	assert.Empty(t, mock.activated)
}

func TestView_ActivateError(t *testing.T) {
	mock := twoGenerations()
	mock.activateErr = domain.ErrNotFound
	view := NewView(nil, nil, mock)
	load(t, view)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	view.Update(cmd())

	assert.ErrorIs(t, view.Err(), domain.ErrNotFound)
}

func TestView_Reload(t *testing.T) {
	mock := twoGenerations()
	view := NewView(nil, nil, mock)
	load(t, view)

	mock.gens = append(mock.gens, domain.Generation{ID: 3, ChunkCount: 60})
	mock.current = 3
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	assert.Contains(t, view.View(), "Loading generations...")

	view.Update(cmd())
	assert.Len(t, view.Generations(), 3)
	assert.Equal(t, int64(3), view.Current())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func manyGenerations(n int) *MockIndexService {
	m := &MockIndexService{}
	for i := 1; i <= n; i++ {
		m.gens = append(m.gens, domain.Generation{ID: int64(i), ChunkCount: 10 * i})
	}
	m.current = int64(n)
	return m
}

func TestView_PruneNeedsConfirmation(t *testing.T) {
	mock := manyGenerations(7)
	view := NewView(nil, nil, mock)
	load(t, view)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	assert.Nil(t, cmd)
	assert.Contains(t, view.View(), "Press p again")

	_, cmd = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, messages.GenerationsPruned{IDs: []int64{1, 2}}, msg)
	assert.Equal(t, PruneKeep, mock.pruneKeep)

	_, cmd = view.Update(msg)
	require.NotNil(t, cmd, "pruning reloads the list")
	view.Update(cmd())
	assert.Len(t, view.Generations(), 5)
	assert.Contains(t, view.View(), "Pruned generations 1, 2")
}

func TestView_PruneCancelledByOtherKey(t *testing.T) {
	mock := manyGenerations(7)
	view := NewView(nil, nil, mock)
	load(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.NotContains(t, view.View(), "Press p again")

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	assert.Nil(t, cmd, "a fresh press asks again")
	assert.Zero(t, mock.pruneKeep)
}

func TestView_PruneNothing(t *testing.T) {
	view := NewView(nil, nil, twoGenerations())
	load(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	_, cmd = view.Update(cmd())
	view.Update(cmd())

	assert.Contains(t, view.View(), "Nothing to prune")
	assert.Len(t, view.Generations(), 2)
}

func TestView_PruneError(t *testing.T) {
	mock := manyGenerations(7)
	mock.pruneErr = errors.New("database is locked")
	view := NewView(nil, nil, mock)
	load(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	view.Update(cmd())

	assert.EqualError(t, view.Err(), "database is locked")
}

func TestView_JumpToEnds(t *testing.T) {
	view := NewView(nil, nil, manyGenerations(4))
	load(t, view)

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 3, view.SelectedIndex())
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Zero(t, view.SelectedIndex())
}
