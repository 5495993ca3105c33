package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("loading gallery: %w", New(GalleryFetch, "store unreachable", cause))

	if !errors.Is(err, ErrGalleryFetch) {
		t.Error("expected errors.Is to match ErrGalleryFetch")
	}
	if errors.Is(err, ErrEmptyGallery) {
		t.Error("GalleryFetch must not match ErrEmptyGallery")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to remain reachable through Unwrap")
	}
	if got := KindOf(err); got != GalleryFetch {
		t.Errorf("KindOf() = %s, want %s", got, GalleryFetch)
	}
	if got := err.Error(); got != "loading gallery: store unreachable: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("KindOf() = %s, want %s", got, Internal)
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(New(ResourceUnavailable, "camera", nil)) {
		t.Error("resource failures are process-level")
	}
	if Fatal(New(EmptyGallery, "empty", nil)) {
		t.Error("gallery failures are session-level")
	}
}
