// Package keymap holds the console key bindings and the help shown per screen.
package keymap

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap is every binding the console reacts to. Several share "enter"; the
// active screen decides which one applies.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Select key.Binding

	Submit     key.Binding
	ToggleMode key.Binding
	NewQuery   key.Binding
	Expand     key.Binding

	Activate key.Binding
	Prune    key.Binding
	Reload   key.Binding
}

var _ help.KeyMap = (*KeyMap)(nil)

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() *KeyMap {
	bind := func(desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], desc))
	}
	km := &KeyMap{
		Quit:       bind("quit", "q", "ctrl+c"),
		Help:       bind("help", "?"),
		Back:       bind("back", "esc"),
		Up:         bind("up", "up", "k"),
		Down:       bind("down", "down", "j"),
		Top:        bind("first", "g", "home"),
		Bottom:     bind("last", "G", "end"),
		Select:     bind("select", "enter"),
		Submit:     bind("query", "enter"),
		ToggleMode: bind("mode", "tab"),
		NewQuery:   bind("new query", "n"),
		Expand:     bind("expand", "enter"),
		Activate:   bind("activate", "a"),
		Prune:      bind("prune", "p"),
		Reload:     bind("reload", "r"),
	}
	km.Up.SetHelp("↑/k", "up")
	km.Down.SetHelp("↓/j", "down")
	return km
}

// Screen identifies which help set applies.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenQuery
	ScreenResults
	ScreenGenerations
)

// Set is the help for one screen.
type Set struct {
	short []key.Binding
	full  [][]key.Binding
}

var _ help.KeyMap = Set{}

func (s Set) ShortHelp() []key.Binding  { return s.short }
func (s Set) FullHelp() [][]key.Binding { return s.full }

// For returns the bindings hinted on screen.
func (k *KeyMap) For(screen Screen) Set {
	switch screen {
	case ScreenMenu:
		short := []key.Binding{k.Up, k.Down, k.Select, k.Quit}
		return Set{short: short, full: [][]key.Binding{short}}
	case ScreenResults:
		return Set{
			short: []key.Binding{k.NewQuery, k.Expand, k.ToggleMode, k.Back},
			full:  [][]key.Binding{{k.Up, k.Down, k.Top, k.Bottom}, {k.Expand, k.NewQuery, k.ToggleMode, k.Back}},
		}
	case ScreenGenerations:
		return Set{
			short: []key.Binding{k.Activate, k.Prune, k.Reload, k.Back},
			full:  [][]key.Binding{{k.Up, k.Down, k.Top, k.Bottom}, {k.Activate, k.Prune, k.Reload, k.Back}},
		}
	default:
		short := []key.Binding{k.Submit, k.ToggleMode, k.Back}
		return Set{short: short, full: [][]key.Binding{short}}
	}
}

// ShortHelp is the query screen hint line.
func (k *KeyMap) ShortHelp() []key.Binding {
	return k.For(ScreenQuery).ShortHelp()
}

// FullHelp lists every binding once, grouped by screen, for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Select},
		{k.Submit, k.ToggleMode, k.NewQuery, k.Expand},
		{k.Activate, k.Prune, k.Reload},
		{k.Back, k.Help, k.Quit},
	}
}
