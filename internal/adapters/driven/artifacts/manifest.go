package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// FormatVersion is bumped when the artifact layout changes incompatibly.
const FormatVersion = 1

// File names inside a generation directory.
const (
	ChunksFile   = "chunks.jsonl"
	VectorsFile  = "vectors.f32"
	ManifestFile = "manifest.json"
)

// Manifest describes an exported generation.
type Manifest struct {
	FormatVersion  int                                    `json:"format_version"`
	Generation     int64                                  `json:"generation"`
	BuildID        string                                 `json:"build_id"`
	EmbeddingModel string                                 `json:"embedding_model"`
	Dimension      int                                    `json:"dimension"`
	ChunkCount     int                                    `json:"chunk_count"`
	Metric         domain.Metric                          `json:"metric"`
	CreatedAt      time.Time                              `json:"created_at"`
	SaltEpoch      string                                 `json:"salt_epoch"`
	SecureSalt     bool                                   `json:"secure_salt"`
	Policies       map[domain.Mode]domain.RetrievalPolicy `json:"policies"`
	Files          ManifestFiles                          `json:"files"`
}

// ManifestFiles names the data files the manifest describes.
type ManifestFiles struct {
	Chunks  string `json:"chunks"`
	Vectors string `json:"vectors"`
}

// NewManifest builds a manifest from a generation.
func NewManifest(gen domain.Generation) Manifest {
	return Manifest{
		FormatVersion:  FormatVersion,
		Generation:     gen.ID,
		BuildID:        gen.BuildID,
		EmbeddingModel: gen.EmbeddingModel,
		Dimension:      gen.Dimension,
		ChunkCount:     gen.ChunkCount,
		Metric:         gen.Metric,
		CreatedAt:      gen.CreatedAt.UTC(),
		SaltEpoch:      gen.SaltEpoch,
		SecureSalt:     gen.SecureSalt,
		Policies:       gen.Policies,
		Files:          ManifestFiles{Chunks: ChunksFile, Vectors: VectorsFile},
	}
}

// ToGeneration converts the manifest back to a generation description.
func (m *Manifest) ToGeneration() domain.Generation {
	return domain.Generation{
		ID:             m.Generation,
		BuildID:        m.BuildID,
		EmbeddingModel: m.EmbeddingModel,
		Dimension:      m.Dimension,
		ChunkCount:     m.ChunkCount,
		Metric:         m.Metric,
		CreatedAt:      m.CreatedAt,
		SaltEpoch:      m.SaltEpoch,
		SecureSalt:     m.SecureSalt,
		Policies:       m.Policies,
	}
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes and sanity-checks a manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrInvalidInput, m.FormatVersion)
	}
	if m.Dimension <= 0 {
		return nil, fmt.Errorf("%w: manifest dimension %d", domain.ErrInvalidInput, m.Dimension)
	}
	if !m.Metric.IsValid() {
		return nil, fmt.Errorf("%w: manifest metric %q", domain.ErrInvalidInput, m.Metric)
	}
	if m.Files.Chunks == "" {
		m.Files.Chunks = ChunksFile
	}
	if m.Files.Vectors == "" {
		m.Files.Vectors = VectorsFile
	}
	return &m, nil
}
