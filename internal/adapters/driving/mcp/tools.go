package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the analyst question to retrieve knowledge base context for"`
	Mode  string `json:"mode,omitempty" jsonschema:"teacher (general explanation) or assistant (concrete actions); default teacher"`
	K     int    `json:"k,omitempty" jsonschema:"number of candidates to retrieve (default from the mode policy)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Query      string        `json:"query"`
	Mode       string        `json:"mode"`
	K          int           `json:"k"`
	Generation int64         `json:"generation"`
	Truncated  bool          `json:"truncated"`
	Admitted   bool          `json:"admitted"`
	Reasons    []string      `json:"reasons"`
	Trail      []string      `json:"trail"`
	Chunks     []ChunkOutput `json:"chunks"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID    string   `json:"chunk_id"`
	Title      string   `json:"title"`
	SourcePath string   `json:"source_path"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Score      float64  `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "retrieve",
		Description: "Retrieve sanitised knowledge base chunks and the retrieval policy verdict. " +
			"Only ground an answer on the chunks when admitted is true; otherwise report the reasons.",
	}, s.handleRetrieve)
}

// handleRetrieve handles the retrieve tool invocation. A policy rejection is
// a normal result, not a tool error.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	mode := domain.ModeTeacher
	if input.Mode != "" {
		m, err := domain.ParseMode(input.Mode)
		if err != nil {
			return nil, RetrieveOutput{}, fmt.Errorf("mode %q: %w", input.Mode, err)
		}
		mode = m
	}

	result, err := s.ports.Retrieval.Query(ctx, input.Query, mode, input.K)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Query:      result.Query,
		Mode:       result.Mode.String(),
		K:          result.K,
		Generation: result.Generation,
		Truncated:  result.Truncated,
		Admitted:   result.Admitted(),
		Reasons:    result.Verdict.Reasons,
		Trail:      make([]string, len(result.Trail)),
		Chunks:     make([]ChunkOutput, len(result.Chunks)),
	}
	for i, st := range result.Trail {
		output.Trail[i] = string(st)
	}
	for i := range result.Chunks {
		c := result.Chunks[i].Chunk
		output.Chunks[i] = ChunkOutput{
			ChunkID:    c.ChunkID,
			Title:      c.Title,
			SourcePath: c.SourcePath,
			Text:       c.Text,
			Tags:       c.Tags,
			Score:      result.Chunks[i].Score,
		}
	}

	return nil, output, nil
}
