package dedup

import (
	"errors"
	"strings"
)

// Error is this module's error domain type.
//
// Components should create an Error at the point a format violation,
// decoding failure, or verification mismatch is first detected.
// Intermediate layers should prefer [fmt.Errorf] with a "%w" verb over
// wrapping in another Error; that is, use Error at the point of detection,
// not at every layer a failure passes through.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

// Assert this implements all the cool features.
var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrFormat, ErrDecode, ErrHashMismatch, ErrControlParse:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents a class of error this module can report.
//
// See spec §7.
type ErrorKind string

// Error implements error.
func (k ErrorKind) Error() string { return string(k) }

// Defined error kinds.
var (
	// ErrFormat covers a malformed ar header, missing/duplicate/out-of-order
	// archive members, a missing control file, or a truncated tar stream.
	ErrFormat = ErrorKind("format error")
	// ErrDecode covers a compression stream rejecting its input.
	ErrDecode = ErrorKind("decode error")
	// ErrHashMismatch covers a verified outer digest differing from the
	// caller-supplied expectation.
	ErrHashMismatch = ErrorKind("hash mismatch")
	// ErrControlParse covers a required control field being absent, or
	// containing non-ASCII bytes where ASCII is required.
	ErrControlParse = ErrorKind("control parse error")
)
