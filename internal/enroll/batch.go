package enroll

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Batch is the product of one enrollment session.
type Batch struct {
	Label      string
	Identifier string
	Dimension  int
	Samples    [][]uint8
}

// Empty reports whether nothing was captured. An empty batch is not an error;
// there is simply nothing to enroll.
func (b Batch) Empty() bool { return len(b.Samples) == 0 }

// Encode concatenates the samples into len(Samples)*Dimension bytes.
func (b Batch) Encode() []byte {
	out := make([]byte, 0, len(b.Samples)*b.Dimension)
	for _, s := range b.Samples {
		out = append(out, s...)
	}
	return out
}

// Base64 is Encode in transport form.
func (b Batch) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Encode())
}

// DecodeSamples splits an encoded batch back into rows of dim bytes.
func DecodeSamples(data []byte, dim int) ([][]uint8, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("batch length %d is not a multiple of dimension %d", len(data), dim)
	}
	rows := make([][]uint8, 0, len(data)/dim)
	for off := 0; off < len(data); off += dim {
		rows = append(rows, data[off:off+dim:off+dim])
	}
	return rows, nil
}

// Compress gzips an encoded batch for storage.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress batch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress batch: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(blob []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress batch: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress batch: %w", err)
	}
	return data, nil
}
