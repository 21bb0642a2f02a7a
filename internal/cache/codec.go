package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"payrollrag/internal/domain"
)

var embeddingsMagic = [4]byte{'P', 'R', 'V', '1'}

// encodeEmbeddings writes the matrix as: magic, uint32 rows, uint32 dims,
// then rows*dims little-endian float64 values.
func encodeEmbeddings(m [][]float64) ([]byte, error) {
	dims := 0
	if len(m) > 0 {
		dims = len(m[0])
	}
	buf := make([]byte, 12, 12+len(m)*dims*8)
	copy(buf, embeddingsMagic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(m)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(dims))
	for i, row := range m {
		if len(row) != dims {
			return nil, fmt.Errorf("row %d has %d dims, want %d", i, len(row), dims)
		}
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf, nil
}

func decodeEmbeddings(b []byte) ([][]float64, error) {
	if len(b) < 12 || !bytes.Equal(b[:4], embeddingsMagic[:]) {
		return nil, fmt.Errorf("%w: bad embeddings header", domain.ErrCacheCorrupt)
	}
	rows := uint64(binary.LittleEndian.Uint32(b[4:]))
	dims := uint64(binary.LittleEndian.Uint32(b[8:]))
	body := b[12:]
	// rows*dims*8 can overflow; size the matrix from the body instead.
	if rows > 0 && dims == 0 {
		return nil, fmt.Errorf("%w: %d embeddings without dimensions", domain.ErrCacheCorrupt, rows)
	}
	size := uint64(len(body))
	if (rows == 0 && size != 0) || (dims > 0 && (size%(dims*8) != 0 || size/(dims*8) != rows)) {
		return nil, fmt.Errorf("%w: embeddings size %d for %dx%d", domain.ErrCacheCorrupt, size, rows, dims)
	}
	m := make([][]float64, rows)
	for i := range m {
		row := make([]float64, dims)
		for j := range row {
			row[j] = math.Float64frombits(binary.LittleEndian.Uint64(body))
			body = body[8:]
		}
		m[i] = row
	}
	return m, nil
}
