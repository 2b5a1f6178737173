// Package mcp provides an MCP (Model Context Protocol) server adapter for Whis.
// It lets AI assistants retrieve policy-gated knowledge base context and
// inspect the generation being served.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
