package artifacts

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// vectorsMagic identifies a vectors file and its layout version.
var vectorsMagic = [8]byte{'W', 'H', 'I', 'S', 'V', 'E', 'C', '1'}

// vectorsHeader precedes the rows: magic, dimension, row count.
type vectorsHeader struct {
	Magic     [8]byte
	Dimension uint32
	Count     uint32
}

// WriteVectors writes the records' vectors as little-endian float32 rows.
func WriteVectors(w io.Writer, dimension int, records []domain.EmbeddingRecord) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}
	bw := bufio.NewWriter(w)
	header := vectorsHeader{Magic: vectorsMagic, Dimension: uint32(dimension), Count: uint32(len(records))}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]byte, 4*dimension)
	for i := range records {
		vec := records[i].Vector
		if len(vec) != dimension {
			return fmt.Errorf("%w: chunk %s has %d values, expected %d",
				domain.ErrDimensionMismatch, records[i].ChunkID, len(vec), dimension)
		}
		for j, f := range vec {
			binary.LittleEndian.PutUint32(row[j*4:], math.Float32bits(f))
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadVectors reads a vectors file and returns its dimension and rows.
func ReadVectors(r io.Reader) (int, [][]float32, error) {
	br := bufio.NewReader(r)
	var header vectorsHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("reading header: %w", err)
	}
	if header.Magic != vectorsMagic {
		return 0, nil, fmt.Errorf("%w: not a vectors file", domain.ErrInvalidInput)
	}
	if header.Dimension == 0 {
		return 0, nil, fmt.Errorf("%w: zero dimension", domain.ErrInvalidInput)
	}

	dim := int(header.Dimension)
	rows := make([][]float32, header.Count)
	buf := make([]byte, 4*dim)
	for i := range rows {
		if _, err := io.ReadFull(br, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, nil, fmt.Errorf("%w: truncated at row %d of %d", domain.ErrInvalidInput, i, header.Count)
			}
			return 0, nil, fmt.Errorf("reading row %d: %w", i, err)
		}
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		rows[i] = row
	}
	return dim, rows, nil
}
