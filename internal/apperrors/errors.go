// Package apperrors defines the failure kinds reported in structured results.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the errorKind field of a result line.
type Kind string

const (
	ResourceUnavailable Kind = "ResourceUnavailableError"
	GalleryFetch        Kind = "GalleryFetchError"
	EmptyGallery        Kind = "EmptyGalleryError"
	NoUsableGalleryData Kind = "NoUsableGalleryDataError"
	InvalidGallery      Kind = "InvalidGalleryError"
	Internal            Kind = "InternalError"
)

// Error carries a Kind alongside a human message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrResourceUnavailable = &Error{Kind: ResourceUnavailable}
	ErrGalleryFetch        = &Error{Kind: GalleryFetch}
	ErrEmptyGallery        = &Error{Kind: EmptyGallery}
	ErrNoUsableGalleryData = &Error{Kind: NoUsableGalleryData}
	ErrInvalidGallery      = &Error{Kind: InvalidGallery}
)

// New builds an *Error of the given kind.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Fatal reports whether the failure should end the process with a non-zero exit.
// Every kind is fatal to its session; only resource failures are process-level setup errors.
func Fatal(err error) bool {
	return KindOf(err) == ResourceUnavailable
}
