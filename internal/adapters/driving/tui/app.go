package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/views/generations"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/whis/internal/adapters/driving/tui/views/query"
	"github.com/custodia-labs/whis/internal/core/domain"
)

const helpIntro = `Queries run against the served generation in teacher and assistant mode.
Both need candidates from enough distinct sources. Assistant mode also needs
an ATT&CK mapping and a tool reference among them, and says which is missing.`

// App is the console's root tea.Model. It owns the screens and routes
// messages to the active one.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	menuView        *menu.View
	queryView       *query.View
	generationsView *generations.View
	currentView     messages.ViewType

	// mode follows the query screen so it survives navigation.
	mode domain.Mode
	err  error

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp builds the console over ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:           ports,
		ctx:             context.Background(),
		styles:          s,
		keys:            km,
		help:            help.New(),
		menuView:        menu.NewView(s, km),
		queryView:       query.NewView(s, km, ports.Retrieval),
		generationsView: generations.NewView(s, km, ports.Index),
		currentView:     messages.ViewMenu,
		mode:            domain.ModeTeacher,
	}
	a.help.ShowAll = true
	a.menuView.SetGeneration(ports.Retrieval.Generation())
	return a, nil
}

// WithContext sets the context that queries and index calls run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.WithContext(ctx)
	a.generationsView.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.SetWindowTitle("whis"))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		return a, a.routeKey(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.ModeChanged:
		a.mode = msg.Mode
		return a, nil

	case messages.QueryCompleted:
		a.queryView, cmd = a.queryView.Update(msg)
		a.err = a.queryView.Err()
		return a, cmd

	case messages.GenerationsLoaded, messages.GenerationActivated, messages.GenerationsPruned:
		a.generationsView, cmd = a.generationsView.Update(msg)
		a.err = a.generationsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewQuery {
			a.queryView, cmd = a.queryView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Cursor blink and other component ticks belong to the query input.
	if a.currentView == messages.ViewQuery {
		a.queryView, cmd = a.queryView.Update(msg)
	}
	return a, cmd
}

func (a *App) routeKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
		a.err = a.queryView.Err()
	case messages.ViewGenerations:
		a.generationsView, cmd = a.generationsView.Update(msg)
	case messages.ViewHelp:
		if key.Matches(msg, a.keys.Back) {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	switch view {
	case messages.ViewQuery:
		a.queryView.Reset()
		return a.queryView.Init()
	case messages.ViewGenerations:
		return a.generationsView.Init()
	case messages.ViewMenu:
		// Activation or pruning may have moved the pointer.
		a.menuView.SetGeneration(a.ports.Retrieval.Generation())
	case messages.ViewHelp:
	}
	return nil
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.currentView {
	case messages.ViewQuery:
		return a.queryView.View()
	case messages.ViewGenerations:
		return a.generationsView.View()
	case messages.ViewHelp:
		return a.helpView()
	default:
		return a.menuView.View()
	}
}

func (a *App) helpView() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Normal.Render(helpIntro))
	b.WriteString("\n\n")
	b.WriteString(a.help.View(a.keys))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the program and blocks until the user quits or ctx ends.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

func (a *App) CurrentView() messages.ViewType { return a.currentView }

// Mode is the retrieval mode last selected on the query screen.
func (a *App) Mode() domain.Mode { return a.mode }

// Result is the last retrieval result, nil before the first query.
func (a *App) Result() *domain.RetrievalResult { return a.queryView.Result() }

func (a *App) Err() error { return a.err }

func (a *App) Ready() bool { return a.ready }

// SetDimensions resizes the app and every screen.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width
	a.menuView.SetDimensions(width, height)
	a.queryView.SetDimensions(width, height)
	a.generationsView.SetDimensions(width, height)
}
