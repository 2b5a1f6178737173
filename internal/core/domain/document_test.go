package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSanitizedDocument_BaseID tests the content-addressed chunk prefix
func TestSanitizedDocument_BaseID(t *testing.T) {
	tests := []struct {
		name     string
		sha      string
		expected string
	}{
		{
			name:     "full digest is truncated",
			sha:      "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			expected: "kb-9f86d081884c",
		},
		{
			name:     "short digest is kept",
			sha:      "abc",
			expected: "kb-abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := SanitizedDocument{SHA256: tt.sha}
			assert.Equal(t, tt.expected, doc.BaseID())
		})
	}
}

// TestSanitizedChunk_HasTag tests exact tag membership
func TestSanitizedChunk_HasTag(t *testing.T) {
	chunk := SanitizedChunk{Tags: []string{"attack:t1558.003", "sigma"}}

	assert.True(t, chunk.HasTag("sigma"))
	assert.True(t, chunk.HasTag("attack:t1558.003"))
	assert.False(t, chunk.HasTag("attack:"))
	assert.False(t, (&SanitizedChunk{}).HasTag("sigma"))
}

// TestNormaliseTags tests case folding, trimming, de-duplication and ordering
func TestNormaliseTags(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		expected []string
	}{
		{name: "nil", in: nil, expected: []string{}},
		{name: "blanks dropped", in: []string{" ", ""}, expected: []string{}},
		{
			name:     "mixed case and duplicates",
			in:       []string{"Sigma", " attack:T1558 ", "sigma", "KQL"},
			expected: []string{"attack:t1558", "kql", "sigma"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormaliseTags(tt.in))
		})
	}
}

// TestNormalizeVector tests unit length and the zero vector
func TestNormalizeVector(t *testing.T) {
	v := []float32{3, 4}
	out := NormalizeVector(v)

	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input must not be modified")

	zero := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}
