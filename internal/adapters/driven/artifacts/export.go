package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// Export writes a generation to dir. Data files are written before the
// manifest, and each file is renamed into place only once complete.
func Export(dir string, gen domain.Generation, chunks []domain.SanitizedChunk, records []domain.EmbeddingRecord) error {
	if err := domain.CheckAligned(chunks, records, gen.Dimension); err != nil {
		return err
	}
	gen.ChunkCount = len(chunks)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	// A stale manifest would describe the old data while new files land.
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old manifest: %w", err)
	}

	if err := writeFile(dir, ChunksFile, func(w io.Writer) error {
		return WriteChunks(w, chunks)
	}); err != nil {
		return err
	}
	if err := writeFile(dir, VectorsFile, func(w io.Writer) error {
		return WriteVectors(w, gen.Dimension, records)
	}); err != nil {
		return err
	}
	return writeFile(dir, ManifestFile, func(w io.Writer) error {
		return WriteManifest(w, NewManifest(gen))
	})
}

// Import reads a generation directory and verifies that chunks, vectors and
// manifest agree.
func Import(dir string) (*Manifest, []domain.SanitizedChunk, []domain.EmbeddingRecord, error) {
	m, err := readFile(dir, ManifestFile, ReadManifest)
	if err != nil {
		return nil, nil, nil, err
	}

	chunks, err := readFile(dir, m.Files.Chunks, ReadChunks)
	if err != nil {
		return nil, nil, nil, err
	}

	var dim int
	rows, err := readFile(dir, m.Files.Vectors, func(r io.Reader) ([][]float32, error) {
		d, rows, err := ReadVectors(r)
		dim = d
		return rows, err
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if dim != m.Dimension {
		return nil, nil, nil, fmt.Errorf("%w: vectors have dimension %d, manifest says %d",
			domain.ErrDimensionMismatch, dim, m.Dimension)
	}
	if len(chunks) != len(rows) || len(chunks) != m.ChunkCount {
		return nil, nil, nil, fmt.Errorf("%w: %d chunks, %d vectors, manifest says %d",
			domain.ErrInvalidInput, len(chunks), len(rows), m.ChunkCount)
	}

	records := make([]domain.EmbeddingRecord, len(chunks))
	for i := range chunks {
		records[i] = domain.EmbeddingRecord{ChunkID: chunks[i].ChunkID, Vector: rows[i]}
	}
	return m, chunks, records, nil
}

func writeFile(dir, name string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}

func readFile[T any](dir, name string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", name, err)
	}
	return v, nil
}
