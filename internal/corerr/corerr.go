// Package corerr defines the typed error kinds the sonification core
// surfaces, a plain struct carrying a kind, a reason, and an optional
// cause rather than a generic errors package.
package corerr

import "fmt"

// Kind names one of the sonification core's error categories.
type Kind string

const (
	InvalidMetric       Kind = "InvalidMetric"
	InvalidSeries        Kind = "InvalidSeries"
	UnknownPalette       Kind = "UnknownPalette"
	MissingRules         Kind = "MissingRules"
	CatalogEmpty         Kind = "CatalogEmpty"
	RendererUnavailable  Kind = "RendererUnavailable"
	ArtifactIOError      Kind = "ArtifactIOError"
	TimeoutError         Kind = "TimeoutError"
	ModelError           Kind = "ModelError"
	InternalError        Kind = "InternalError"
)

// Error is the core's error type: a kind, a short human-readable reason, and
// an optional wrapped cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a core error with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap builds a core error wrapping an underlying cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, returning
// InternalError otherwise. Useful at job-store boundaries that must always
// report some kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if As(err, &ce) {
		return ce.Kind
	}
	return InternalError
}

// As is a tiny local errors.As to avoid importing errors just for this.
func As(err error, target **Error) bool {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
