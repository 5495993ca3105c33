// Package vector holds the fixed-size face vector rules shared by enrollment and matching.
package vector

import (
	"fmt"
	"math"
)

const (
	// SampleSide is the edge length, in pixels, of a canonical face sample.
	SampleSide = 50
	// Channels is the number of colour channels per pixel (BGR).
	Channels = 3
	// Dimension is the declared length of every face vector.
	Dimension = SampleSide * SampleSide * Channels
)

// Number is any element type a raw face vector may arrive in.
type Number interface {
	~uint8 | ~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Action describes what Normalize had to do to reach the target length.
type Action string

const (
	Unchanged Action = "unchanged"
	Truncated Action = "truncated"
	Padded    Action = "padded"
)

// Repair reports the outcome of a Normalize call.
type Repair struct {
	Action   Action
	Original int // length before normalization
	Final    int // length after normalization
}

// Changed reports whether the vector was altered.
func (r Repair) Changed() bool {
	return r.Action != Unchanged
}

// Delta is the number of elements dropped (truncation) or added (padding).
func (r Repair) Delta() int {
	if r.Original > r.Final {
		return r.Original - r.Final
	}
	return r.Final - r.Original
}

func (r Repair) String() string {
	switch r.Action {
	case Truncated:
		return fmt.Sprintf("truncated from %d to %d (%d dropped)", r.Original, r.Final, r.Delta())
	case Padded:
		return fmt.Sprintf("padded from %d to %d (%d zeros added)", r.Original, r.Final, r.Delta())
	default:
		return fmt.Sprintf("unchanged at %d", r.Final)
	}
}

// Normalize forces v to exactly target elements. Longer vectors keep their prefix,
// shorter vectors are extended with zeros. It never fails.
// The returned slice never aliases v unless the length already matched.
func Normalize[T Number](v []T, target int) ([]T, Repair) {
	if target < 0 {
		target = 0
	}
	r := Repair{Original: len(v), Final: target}

	switch {
	case len(v) == target:
		r.Action = Unchanged
		return v, r
	case len(v) > target:
		r.Action = Truncated
		out := make([]T, target)
		copy(out, v[:target])
		return out, r
	default:
		r.Action = Padded
		out := make([]T, target)
		copy(out, v)
		return out, r
	}
}

// FromNumbers converts raw numeric samples into the unsigned byte space.
// Values are rounded and clamped to [0, 255]; NaN becomes 0.
func FromNumbers[T Number](v []T) []uint8 {
	out := make([]uint8, len(v))
	for i, x := range v {
		f := math.Round(float64(x))
		switch {
		case math.IsNaN(f) || f <= 0:
			out[i] = 0
		case f >= 255:
			out[i] = 255
		default:
			out[i] = uint8(f)
		}
	}
	return out
}

// ToFloat32 widens a byte vector for storage engines that only index floats.
func ToFloat32(v []uint8) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// SquaredDistance returns the exact squared Euclidean distance between a and b.
// Missing trailing elements of the shorter vector count as zero.
func SquaredDistance(a, b []uint8) uint64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var sum uint64
	for i := 0; i < n; i++ {
		var x, y int64
		if i < len(a) {
			x = int64(a[i])
		}
		if i < len(b) {
			y = int64(b[i])
		}
		d := x - y
		sum += uint64(d * d)
	}
	return sum
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []uint8) float64 {
	return math.Sqrt(float64(SquaredDistance(a, b)))
}
