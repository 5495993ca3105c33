package enroll

import (
	"bytes"
	"context"
	"image"
	"io"
	"testing"

	"github.com/andresmejia3/rollcall/internal/pipeline"
	"github.com/andresmejia3/rollcall/internal/sampler"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/vector"
)

func sample(v uint8) []uint8 {
	return bytes.Repeat([]byte{v}, vector.Dimension)
}

func TestOfferStride(t *testing.T) {
	s := NewSession("Alice", "101", Options{})

	var accepted []int
	for i := 0; i < 26; i++ {
		if s.Offer(sample(uint8(i))) {
			accepted = append(accepted, i)
		}
	}

	want := []int{0, 5, 10, 15, 20, 25}
	if len(accepted) != len(want) {
		t.Fatalf("accepted %v, want %v", accepted, want)
	}
	for i := range want {
		if accepted[i] != want[i] {
			t.Errorf("accepted[%d] = %d, want %d", i, accepted[i], want[i])
		}
	}
	if s.Done() {
		t.Error("session should still be running")
	}
}

func TestOfferCap(t *testing.T) {
	tests := []struct {
		name   string
		stride int
	}{
		{"Default stride", 0},
		{"Every offer qualifies", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("Alice", "101", Options{Stride: tt.stride})
			for i := 0; i < 300; i++ {
				s.Offer(sample(1))
			}
			if s.Accepted() != DefaultMax {
				t.Errorf("Accepted() = %d, want %d", s.Accepted(), DefaultMax)
			}
			if !s.Done() {
				t.Error("session should be complete at the cap")
			}
			if s.Offer(sample(1)) {
				t.Error("offer past the cap was accepted")
			}
		})
	}
}

func TestStopBeforeAnySample(t *testing.T) {
	s := NewSession("Alice", "101", Options{})
	s.Stop()
	if s.Offer(sample(1)) {
		t.Error("stopped session accepted a sample")
	}
	b := s.Batch()
	if !b.Empty() || len(b.Encode()) != 0 {
		t.Errorf("expected an empty batch, got %d samples", len(b.Samples))
	}
	if b.Label != "Alice" || b.Identifier != "101" {
		t.Errorf("batch identity = %s/%s", b.Label, b.Identifier)
	}
}

func TestOfferNormalizesAndCopies(t *testing.T) {
	s := NewSession("Alice", "101", Options{Stride: 1})

	short := []uint8{9, 9, 9}
	s.Offer(short)

	buf := sample(7)
	s.Offer(buf)
	buf[0] = 0

	b := s.Batch()
	if len(b.Samples[0]) != vector.Dimension || b.Samples[0][2] != 9 || b.Samples[0][3] != 0 {
		t.Error("short sample was not zero-padded")
	}
	if b.Samples[1][0] != 7 {
		t.Error("accepted sample aliases the caller's buffer")
	}
}

// framesWithFaces serves n frames, each with one face box, then EOF.
type framesWithFaces struct{ n, i int }

func (f *framesWithFaces) Read(ctx context.Context) (types.Frame, error) {
	if f.i >= f.n {
		return types.Frame{}, io.EOF
	}
	f.i++
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p], img.Pix[p+3] = 200, 255
	}
	return types.Frame{Index: f.i - 1, Image: img}, nil
}

func (f *framesWithFaces) Close() error { return nil }

type oneFace struct{}

func (oneFace) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	return []image.Rectangle{image.Rect(8, 8, 40, 40)}, nil
}

func TestRunStopsAtCap(t *testing.T) {
	src := &framesWithFaces{n: 1000}
	loop := &pipeline.Loop{Source: src, Detector: oneFace{}}
	s := NewSession("Bob", "102", Options{})

	progress := 0
	b, stats, err := s.Run(context.Background(), loop, sampler.Default(), nil, func(n int) { progress = n })
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Samples) != DefaultMax || progress != DefaultMax {
		t.Errorf("samples=%d progress=%d, want %d", len(b.Samples), progress, DefaultMax)
	}
	// The 50th kept face is offer 245, i.e. frame 246.
	if stats.Frames != 246 || stats.EndOfFeed {
		t.Errorf("stats = %+v", stats)
	}
	// Red in RGB is the last byte of each BGR triple.
	if px := b.Samples[0][:3]; px[0] != 0 || px[2] != 200 {
		t.Errorf("first pixel = %v", px)
	}
}

func TestRunEndOfFeedBeforeAnyFace(t *testing.T) {
	loop := &pipeline.Loop{Source: &framesWithFaces{n: 0}, Detector: oneFace{}}
	b, stats, err := NewSession("Bob", "102", Options{}).Run(context.Background(), loop, sampler.Default(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Empty() || !stats.EndOfFeed {
		t.Errorf("batch empty=%v stats=%+v", b.Empty(), stats)
	}
}
