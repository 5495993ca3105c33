// Package storetest exercises any store.Repository against the same scenarios.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresmejia3/rollcall/internal/enroll"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/andresmejia3/rollcall/internal/vector"
)

// Batch builds a batch of n samples whose bytes all equal fill+i.
func Batch(name, rollNo string, n int, fill uint8) enroll.Batch {
	b := enroll.Batch{Label: name, Identifier: rollNo, Dimension: vector.Dimension}
	for i := 0; i < n; i++ {
		b.Samples = append(b.Samples, bytes.Repeat([]byte{fill + uint8(i)}, vector.Dimension))
	}
	return b
}

// Run checks the Repository contract. The repository must start empty.
func Run(t *testing.T, repo store.Repository) {
	t.Helper()
	ctx := context.Background()

	// --- Empty store ---
	raw, err := repo.Gallery(ctx)
	if err != nil {
		t.Fatalf("Gallery on empty store failed: %v", err)
	}
	if len(raw.Vectors) != 0 {
		t.Fatalf("Expected empty gallery, got %d vectors", len(raw.Vectors))
	}

	// --- Enroll two students ---
	alice, err := repo.SaveEnrollment(ctx, Batch("Alice", "101", 3, 10))
	if err != nil {
		t.Fatalf("SaveEnrollment(Alice) failed: %v", err)
	}
	if alice.ID == "" || alice.Samples != 3 {
		t.Errorf("Unexpected student %+v", alice)
	}
	// Enrollment time orders the gallery; keep the two apart.
	time.Sleep(10 * time.Millisecond)
	if _, err := repo.SaveEnrollment(ctx, Batch("Bob", "102", 2, 200)); err != nil {
		t.Fatalf("SaveEnrollment(Bob) failed: %v", err)
	}

	raw, err = repo.Gallery(ctx)
	if err != nil {
		t.Fatalf("Gallery failed: %v", err)
	}
	wantLabels := []string{"Alice", "Alice", "Alice", "Bob", "Bob"}
	if len(raw.Labels) != len(wantLabels) {
		t.Fatalf("Expected %d gallery entries, got %d", len(wantLabels), len(raw.Labels))
	}
	for i, l := range wantLabels {
		if raw.Labels[i] != l {
			t.Errorf("Label[%d] = %s, want %s", i, raw.Labels[i], l)
		}
	}
	if raw.Identifiers[3] != "102" {
		t.Errorf("Identifier[3] = %s, want 102", raw.Identifiers[3])
	}
	// Sample order within a batch is preserved
	if raw.Vectors[1][0] != 11 || raw.Vectors[4][0] != 201 {
		t.Errorf("Unexpected sample values %v / %v", raw.Vectors[1][0], raw.Vectors[4][0])
	}

	g, report, err := gallery.Validate(raw)
	if err != nil {
		t.Fatalf("Stored gallery does not validate: %v", err)
	}
	if g.Len() != 5 || len(report.Events) != 0 {
		t.Errorf("Expected 5 clean entries, got %d with %d events", g.Len(), len(report.Events))
	}

	// --- Face data export ---
	data, st, err := repo.FaceData(ctx, "102")
	if err != nil {
		t.Fatalf("FaceData failed: %v", err)
	}
	rows, err := enroll.DecodeSamples(data, vector.Dimension)
	if err != nil || len(rows) != 2 || st.Name != "Bob" {
		t.Errorf("FaceData returned %d rows for %+v (err %v)", len(rows), st, err)
	}
	if _, _, err := repo.FaceData(ctx, "999"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// --- Re-enrollment replaces the batch and moves the student to the end ---
	time.Sleep(10 * time.Millisecond)
	if _, err := repo.SaveEnrollment(ctx, Batch("Alice B.", "101", 1, 50)); err != nil {
		t.Fatalf("Re-enrollment failed: %v", err)
	}
	raw, err = repo.Gallery(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw.Labels) != 3 || raw.Labels[0] != "Bob" || raw.Labels[2] != "Alice B." {
		t.Errorf("Unexpected gallery after re-enrollment: %v", raw.Labels)
	}

	// --- Rename ---
	if err := repo.Rename(ctx, "102", "Robert"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := repo.Rename(ctx, "999", "Nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	students, err := repo.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("Expected 2 students, got %d", len(students))
	}
	if students[0].Name != "Robert" || students[0].Samples != 2 || students[1].Samples != 1 {
		t.Errorf("Unexpected students %+v", students)
	}

	// --- Reset ---
	if err := repo.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	students, err = repo.ListStudents(ctx)
	if err != nil || len(students) != 0 {
		t.Errorf("Expected no students after reset, got %d (err %v)", len(students), err)
	}
}
