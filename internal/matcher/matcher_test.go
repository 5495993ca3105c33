package matcher

import (
	"errors"
	"math"
	"testing"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/vector"
)

// offset returns a Dimension-length vector equal to base except for one element,
// which lies dist away from base's value.
func offset(base uint8, dist uint8) []uint8 {
	v := make([]uint8, vector.Dimension)
	for i := range v {
		v[i] = base
	}
	v[0] = base + dist
	return v
}

func TestFitEmptyGallery(t *testing.T) {
	_, err := Fit(&gallery.Gallery{})
	if !errors.Is(err, apperrors.ErrEmptyGallery) {
		t.Errorf("expected EmptyGalleryError, got %v", err)
	}
}

func TestPredictNearest(t *testing.T) {
	probe := offset(0, 0)
	near := offset(0, 100) // distance 100
	far := offset(0, 200)  // distance 200

	orders := []struct {
		name    string
		entries []gallery.Entry
	}{
		{"Near first", []gallery.Entry{{Vector: near, Label: "Near"}, {Vector: far, Label: "Far"}}},
		{"Far first", []gallery.Entry{{Vector: far, Label: "Far"}, {Vector: near, Label: "Near"}}},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Fit(&gallery.Gallery{Dimension: vector.Dimension, Entries: tt.entries})
			if err != nil {
				t.Fatal(err)
			}
			got := m.Predict(probe)
			if got.Label != "Near" {
				t.Errorf("Predict() = %s, want Near", got.Label)
			}
			if math.Abs(got.Distance-100) > 1e-9 {
				t.Errorf("Distance = %f, want 100", got.Distance)
			}
		})
	}
}

func TestPredictTieBreaksOnLowestIndex(t *testing.T) {
	probe := offset(50, 0)
	above := offset(50, 10)
	below := offset(50, 0)
	below[0] = 40

	m, err := Fit(&gallery.Gallery{Dimension: vector.Dimension, Entries: []gallery.Entry{
		{Vector: above, Label: "First"},
		{Vector: below, Label: "Second"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		got := m.Predict(probe)
		if got.Label != "First" || got.Index != 0 {
			t.Fatalf("call %d: Predict() = %+v, want index 0", i, got)
		}
	}
}

func TestPredictIdenticalProbe(t *testing.T) {
	alice := make([]uint8, vector.Dimension)
	m, err := Fit(&gallery.Gallery{Dimension: vector.Dimension, Entries: []gallery.Entry{
		{Vector: alice, Label: "Alice", Identifier: "101"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	got := m.Predict(make([]uint8, vector.Dimension))
	if got.Label != "Alice" || got.Distance != 0 {
		t.Errorf("Predict() = %+v", got)
	}
}

func TestPredictNormalizesShortProbe(t *testing.T) {
	a := offset(0, 0)
	b := offset(9, 0)
	m, err := Fit(&gallery.Gallery{Dimension: vector.Dimension, Entries: []gallery.Entry{
		{Vector: b, Label: "B"},
		{Vector: a, Label: "A"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	// A short all-zero probe pads to the zero vector.
	if got := m.Predict([]uint8{0, 0, 0}); got.Label != "A" {
		t.Errorf("Predict() = %s, want A", got.Label)
	}
}
