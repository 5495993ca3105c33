package enroll

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeShape(t *testing.T) {
	b := Batch{Dimension: 4, Samples: [][]uint8{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}}

	data := b.Encode()
	if len(data) != 12 {
		t.Fatalf("encoded length = %d, want 12", len(data))
	}

	rows, err := DecodeSamples(data, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[2][0] != 9 {
		t.Errorf("decoded rows = %v", rows)
	}
}

func TestDecodeSamplesRejectsPartialRow(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		dim  int
	}{
		{"Partial row", make([]byte, 10), 4},
		{"Zero dimension", make([]byte, 4), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeSamples(tt.data, tt.dim); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 2, 3}, 2500)
	blob, err := Compress(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) >= len(raw) {
		t.Errorf("repetitive batch did not shrink: %d -> %d", len(raw), len(blob))
	}
	got, err := Decompress(blob)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("round trip changed the batch")
	}

	if _, err := Decompress([]byte("not gzip")); err == nil {
		t.Error("expected an error for a corrupt blob")
	}
}
