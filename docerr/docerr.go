// Package docerr implements a closed error-kind taxonomy with nested
// context frames: a named-constant-registry of error kinds, keyed on
// six parse-failure kinds rather than a raw error string.
package docerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the six error tags the pipeline ever reports. It is
// distinct from the Go error *type* carrying it: every parser failure,
// however it originates, is normalized to one of these kinds at the chain
// boundary.
type Kind int

const (
	// FileEncrypted: the source is password-protected or otherwise
	// encrypted; parsing cannot proceed without a key.
	FileEncrypted Kind = iota
	// UninterpretableData: the format expected a structure the bytes do
	// not satisfy (corrupt record, malformed container).
	UninterpretableData
	// UnknownFormat: no parser claims the detected MIME type.
	UnknownFormat
	// IOFailure: a stream read failed, or a path was not readable.
	IOFailure
	// ResourceExhausted: allocation failed, or a deadline expired.
	ResourceExhausted
	// ExternalLibraryFailure: a wrapped foreign (OLE/PDF/OCR/XML) error.
	ExternalLibraryFailure
)

func (k Kind) String() string {
	switch k {
	case FileEncrypted:
		return "file_encrypted"
	case UninterpretableData:
		return "uninterpretable_data"
	case UnknownFormat:
		return "unknown_format"
	case IOFailure:
		return "io_failure"
	case ResourceExhausted:
		return "resource_exhausted"
	case ExternalLibraryFailure:
		return "external_library_failure"
	default:
		return "unknown_kind"
	}
}

// Frame is one named-field context layer wrapped around a cause, e.g.
// {"file": "x.doc", "record": 42, "offset": "0x1A0"}.
type Frame map[string]interface{}

// Error is a nested error chain: an inner cause plus one or more outer
// context frames, each added by successive wrapping at the call site
// that caught and re-raised the failure.
type Error struct {
	Kind        Kind
	Description string
	Cause       error
	Frames      []Frame
}

// New creates a root error of the given kind.
func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// Wrap creates a new error of the given kind wrapping cause as its inner
// error. If cause is already a *Error, its Kind is not altered — wrapping
// only adds a layer, it does not reclassify an existing error's kind.
func Wrap(kind Kind, description string, cause error) *Error {
	return &Error{Kind: kind, Description: description, Cause: cause}
}

// WithContext appends a context frame and returns e for chaining, e.g.
//
//	err.WithContext(docerr.Frame{"file": name, "record": n})
func (e *Error) WithContext(f Frame) *Error {
	e.Frames = append(e.Frames, f)
	return e
}

// Unwrap supports errors.Is/errors.As over the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Error implements the error interface, rendering the kind, description,
// context frames (innermost first as they were added) and the wrapped
// cause if present.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	for _, f := range e.Frames {
		b.WriteString(" [")
		first := true
		for k, v := range f {
			if !first {
				b.WriteString(" ")
			}
			first = false
			fmt.Fprintf(&b, "%s=%v", k, v)
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, docerr.New(docerr.FileEncrypted, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, with ok
// false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Recoverable reports whether errors of this kind should be emitted as
// an error message while parsing continues rather than aborting the
// current parser. FileEncrypted and
// ResourceExhausted are always unrecoverable; the others depend on scope
// (a single bad record vs. a wholly unreadable container) and are left to
// the caller's judgement — this only encodes the kinds that are *always*
// fatal.
func (k Kind) Recoverable() bool {
	switch k {
	case FileEncrypted, ResourceExhausted:
		return false
	default:
		return true
	}
}
