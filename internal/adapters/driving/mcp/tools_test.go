package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/core/domain"
)

func admittedResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Query:      "triage brute force",
		Mode:       domain.ModeAssistant,
		K:          8,
		Generation: 4,
		Chunks: []domain.ScoredChunk{{
			Chunk: domain.SanitizedChunk{
				ChunkID:    "kb-abc-000",
				Title:      "Brute force triage",
				SourcePath: "kb/brute.md",
				Text:       "Lock accounts after EMAIL_0123456789 confirms.",
				Tags:       []string{"attack:t1110", "tool:splunk"},
			},
			Score: 0.91,
		}},
		Verdict: domain.Verdict{Met: true, Reasons: []string{}},
		Trail: []domain.QueryState{
			domain.StateQueried, domain.StateCandidatesRetrieved, domain.StatePolicyEvaluated, domain.StateAdmitted,
		},
	}
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns chunks and verdict", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: admittedResult()}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "triage brute force", Mode: "Assistant", K: 8})
		require.NoError(t, err)

		assert.Equal(t, domain.ModeAssistant, retrieval.lastMode)
		assert.Equal(t, 8, retrieval.lastK)
		assert.True(t, output.Admitted)
		assert.Empty(t, output.Reasons)
		assert.Equal(t, int64(4), output.Generation)
		assert.Equal(t, []string{"queried", "candidates_retrieved", "policy_evaluated", "admitted"}, output.Trail)
		require.Len(t, output.Chunks, 1)
		assert.Equal(t, "kb-abc-000", output.Chunks[0].ChunkID)
		assert.Equal(t, "kb/brute.md", output.Chunks[0].SourcePath)
		assert.Equal(t, []string{"attack:t1110", "tool:splunk"}, output.Chunks[0].Tags)
		assert.InDelta(t, 0.91, output.Chunks[0].Score, 1e-9)
	})

	t.Run("defaults to teacher mode", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: admittedResult()}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})
		require.NoError(t, err)
		assert.Equal(t, domain.ModeTeacher, retrieval.lastMode)
		assert.Zero(t, retrieval.lastK)
	})

	t.Run("rejection is a result, not an error", func(t *testing.T) {
		res := admittedResult()
		res.Verdict = domain.Verdict{Met: false, Reasons: []string{domain.ReasonMissingToolReference}}
		res.Trail[len(res.Trail)-1] = domain.StateRejected
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{result: res}})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", Mode: "assistant"})
		require.NoError(t, err)
		assert.False(t, output.Admitted)
		assert.Equal(t, []string{domain.ReasonMissingToolReference}, output.Reasons)
	})

	t.Run("unknown mode is an error", func(t *testing.T) {
		retrieval := &mockRetrievalService{result: admittedResult()}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q", Mode: "oracle"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, retrieval.lastQuery, "query not attempted")
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{err: errors.New("embedding backend down")}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding backend down")
	})
}
