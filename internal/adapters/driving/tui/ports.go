// Package tui provides an interactive terminal console for querying Whis.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/whis/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Retrieval answers queries under a mode policy.
	Retrieval driving.RetrievalService

	// Index lists and activates generations.
	Index driving.IndexService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(retrieval driving.RetrievalService, index driving.IndexService) *Ports {
	return &Ports{
		Retrieval: retrieval,
		Index:     index,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
