// Package messages holds the tea.Msg types passed between the console views.
package messages

import (
	"github.com/custodia-labs/whis/internal/core/domain"
)

// ViewType identifies a console screen.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewQuery
	ViewGenerations
	ViewHelp
)

var viewNames = [...]string{
	ViewMenu:        "menu",
	ViewQuery:       "query",
	ViewGenerations: "generations",
	ViewHelp:        "help",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to switch screens.
type ViewChanged struct {
	View ViewType
}

// QueryCompleted carries a retrieval result, or the error that prevented one.
type QueryCompleted struct {
	Result *domain.RetrievalResult
	Err    error
}

// ModeChanged reports a teacher/assistant toggle.
type ModeChanged struct {
	Mode domain.Mode
}

// GenerationsLoaded carries the committed generations and the served one (0 if none).
type GenerationsLoaded struct {
	Generations []domain.Generation
	Current     int64
	Err         error
}

// GenerationActivated reports a move of the current pointer.
type GenerationActivated struct {
	ID  int64
	Err error
}

// GenerationsPruned lists the generations removed by a prune, oldest first.
type GenerationsPruned struct {
	IDs []int64
	Err error
}

// ErrorOccurred reports a failure outside a specific request.
type ErrorOccurred struct {
	Err error
}

// Quit asks the app to exit.
type Quit struct{}
