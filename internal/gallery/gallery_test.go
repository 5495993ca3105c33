package gallery

import (
	"errors"
	"testing"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/vector"
)

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestValidateEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
	}{
		{"All empty", Raw{}},
		{"No labels", Raw{Vectors: [][]float64{{1}}, Identifiers: []string{"1"}}},
		{"No identifiers", Raw{Vectors: [][]float64{{1}}, Labels: []string{"a"}}},
		{"No vectors", Raw{Labels: []string{"a"}, Identifiers: []string{"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Validate(tt.raw)
			if !errors.Is(err, apperrors.ErrEmptyGallery) {
				t.Errorf("expected EmptyGalleryError, got %v", err)
			}
		})
	}
}

func TestValidateMismatchedLengths(t *testing.T) {
	raw := Raw{
		Vectors:     [][]float64{filled(vector.Dimension, 1), filled(vector.Dimension, 2)},
		Labels:      []string{"Alice", "Bob"},
		Identifiers: []string{"101"},
	}
	_, _, err := Validate(raw)
	if !errors.Is(err, apperrors.ErrInvalidGallery) {
		t.Errorf("expected InvalidGalleryError, got %v", err)
	}
}

func TestValidateSingleEntry(t *testing.T) {
	raw := Raw{
		Vectors:     [][]float64{filled(vector.Dimension, 0)},
		Labels:      []string{"Alice"},
		Identifiers: []string{"101"},
	}
	g, report, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", g.Len())
	}
	if len(report.Events) != 0 {
		t.Errorf("expected no repair events, got %+v", report.Events)
	}
	if id, ok := g.IdentifierFor("Alice"); !ok || id != "101" {
		t.Errorf("IdentifierFor(Alice) = %q, %v", id, ok)
	}
}

func TestValidateIsIdempotentOnWellFormedInput(t *testing.T) {
	raw := Raw{
		Vectors:     [][]float64{filled(vector.Dimension, 10), filled(vector.Dimension, 20)},
		Labels:      []string{"Alice", "Bob"},
		Identifiers: []string{"101", "102"},
	}
	first, r1, err := Validate(raw)
	if err != nil {
		t.Fatal(err)
	}

	// Feed the validated entries back through.
	var again Raw
	for _, e := range first.Entries {
		again.Append(e.Vector, e.Label, e.Identifier)
	}
	second, r2, err := Validate(again)
	if err != nil {
		t.Fatal(err)
	}

	if len(r1.Events) != 0 || len(r2.Events) != 0 {
		t.Errorf("expected zero repair events, got %d and %d", len(r1.Events), len(r2.Events))
	}
	if second.Len() != first.Len() {
		t.Fatalf("entry count changed: %d -> %d", first.Len(), second.Len())
	}
	for i := range first.Entries {
		a, b := first.Entries[i], second.Entries[i]
		if a.Label != b.Label || a.Identifier != b.Identifier || vector.SquaredDistance(a.Vector, b.Vector) != 0 {
			t.Errorf("entry %d differs after revalidation", i)
		}
	}
}

func TestValidateRaggedInput(t *testing.T) {
	raw := Raw{
		Vectors: [][]float64{
			filled(vector.Dimension+5, 7),
			filled(10, 3),
			filled(vector.Dimension, 1),
		},
		Labels:      []string{"Long", "Short", "Exact"},
		Identifiers: []string{"1", "2", "3"},
	}
	g, report, err := Validate(raw)
	if err != nil {
		t.Fatalf("ragged input must not fail: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", g.Len())
	}
	for _, e := range g.Entries {
		if len(e.Vector) != vector.Dimension {
			t.Errorf("%s has length %d, want %d", e.Label, len(e.Vector), vector.Dimension)
		}
	}
	if report.Repairs() != 2 {
		t.Fatalf("expected 2 repairs, got %+v", report.Events)
	}

	long, short := report.Events[0], report.Events[1]
	if long.Label != "Long" || long.Action != vector.Truncated || long.Original != vector.Dimension+5 || long.Final != vector.Dimension {
		t.Errorf("unexpected truncation event %+v", long)
	}
	if short.Label != "Short" || short.Action != vector.Padded || short.Original != 10 {
		t.Errorf("unexpected padding event %+v", short)
	}
	if g.Entries[1].Vector[9] != 3 || g.Entries[1].Vector[10] != 0 {
		t.Error("padding did not keep the prefix followed by zeros")
	}
}

func TestValidateNoUsableData(t *testing.T) {
	raw := Raw{
		Vectors:     [][]float64{filled(vector.Dimension, 1)},
		Labels:      []string{"  "},
		Identifiers: []string{"101"},
	}
	_, report, err := Validate(raw)
	if !errors.Is(err, apperrors.ErrNoUsableGalleryData) {
		t.Fatalf("expected NoUsableGalleryDataError, got %v", err)
	}
	if report.Drops() != 1 {
		t.Errorf("expected the drop to be reported, got %+v", report.Events)
	}
}

func TestIdentifierForFirstMatchWins(t *testing.T) {
	g := &Gallery{Entries: []Entry{
		{Label: "Alice", Identifier: "101"},
		{Label: "Alice", Identifier: "999"},
	}}
	if id, _ := g.IdentifierFor("Alice"); id != "101" {
		t.Errorf("IdentifierFor() = %s, want first identifier 101", id)
	}
	if _, ok := g.IdentifierFor("Nobody"); ok {
		t.Error("expected no identifier for an unknown label")
	}
}
