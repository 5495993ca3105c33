// Package sampler turns a detected face region into a canonical sample vector.
package sampler

import (
	"errors"
	"image"

	"github.com/andresmejia3/rollcall/internal/vector"
	"golang.org/x/image/draw"
)

// ErrEmptyRegion is returned when the box does not overlap the frame.
var ErrEmptyRegion = errors.New("face region is outside the frame")

// Sampler crops and resizes face regions. The zero value is not usable; use New.
type Sampler struct {
	side   int
	scaler draw.Scaler
}

// New returns a Sampler producing side x side samples with bilinear interpolation.
func New(side int) *Sampler {
	if side <= 0 {
		side = vector.SampleSide
	}
	return &Sampler{side: side, scaler: draw.BiLinear}
}

// Default returns a Sampler for the declared dimension.
func Default() *Sampler {
	return New(vector.SampleSide)
}

// Dimension is the length of every vector this sampler produces.
func (s *Sampler) Dimension() int {
	return s.side * s.side * vector.Channels
}

// Sample crops box out of frame, resizes it to the canonical square and flattens it
// row-major with interleaved B, G, R bytes.
func (s *Sampler) Sample(frame image.Image, box image.Rectangle) ([]uint8, error) {
	// Clip to the frame so partially visible faces still sample.
	box = box.Canon().Intersect(frame.Bounds())
	if box.Empty() {
		return nil, ErrEmptyRegion
	}

	dst := image.NewRGBA(image.Rect(0, 0, s.side, s.side))
	s.scaler.Scale(dst, dst.Bounds(), frame, box, draw.Src, nil)

	out := make([]uint8, 0, s.Dimension())
	for y := 0; y < s.side; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+s.side*4]
		for x := 0; x < s.side; x++ {
			px := row[x*4 : x*4+4]
			out = append(out, px[2], px[1], px[0])
		}
	}
	return out, nil
}
