package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/whis/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for Whis resources.
	uriScheme = "whis://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "manifest",
		Name:        "manifest",
		Description: "The index generation currently served, with its retrieval policies",
		MIMEType:    "application/json",
	}, s.handleManifestResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "generations",
		Name:        "generations",
		Description: "All committed index generations, oldest first",
		MIMEType:    "application/json",
	}, s.handleGenerationsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "generations/{id}",
		Name:        "generation",
		Description: "A single committed index generation",
		MIMEType:    "application/json",
	}, s.handleGenerationResource)
}

// manifestInfo is the body of the manifest resource.
type manifestInfo struct {
	Serving    bool               `json:"serving"`
	Generation *domain.Generation `json:"generation"`
}

// handleManifestResource describes the generation being served.
func (s *Server) handleManifestResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	gen := s.ports.Retrieval.Generation()
	return jsonResource(req.Params.URI, manifestInfo{Serving: gen != nil, Generation: gen})
}

// handleGenerationsResource lists committed generations.
func (s *Server) handleGenerationsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return jsonResource(req.Params.URI, []domain.Generation{})
	}

	gens, err := s.ports.Index.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	return jsonResource(req.Params.URI, gens)
}

// handleGenerationResource returns one generation by ID.
func (s *Server) handleGenerationResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract id from URI: whis://generations/{id}
	id, ok := extractGenerationID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	gens, err := s.ports.Index.Generations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	for i := range gens {
		if gens[i].ID == id {
			return jsonResource(req.Params.URI, gens[i])
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractGenerationID extracts the ID from a URI like whis://generations/{id}.
func extractGenerationID(uri string) (int64, bool) {
	const prefix = uriScheme + "generations/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
