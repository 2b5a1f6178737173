package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// maxRecordBytes bounds a single JSONL line.
const maxRecordBytes = 16 << 20

// WriteChunks writes one JSON object per chunk, newline-delimited.
func WriteChunks(w io.Writer, chunks []domain.SanitizedChunk) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for i := range chunks {
		record := chunks[i]
		if record.Tags == nil {
			record.Tags = []string{}
		}
		if record.RedactionStats == nil {
			record.RedactionStats = map[string]int{}
		}
		record.IngestedAt = record.IngestedAt.UTC()
		if err := enc.Encode(&record); err != nil {
			return fmt.Errorf("encoding chunk %s: %w", record.ChunkID, err)
		}
	}
	return bw.Flush()
}

// ReadChunks reads newline-delimited chunk records. Blank lines are ignored.
func ReadChunks(r io.Reader) ([]domain.SanitizedChunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	var chunks []domain.SanitizedChunk
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var chunk domain.SanitizedChunk
		if err := json.Unmarshal([]byte(text), &chunk); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if chunk.ChunkID == "" {
			return nil, fmt.Errorf("line %d: %w: missing chunk_id", line, domain.ErrInvalidInput)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	return chunks, nil
}
