// Package flaccore provides the core, format-exact building blocks of a FLAC
// (Free Lossless Audio Codec) encoder/decoder: bit-level I/O with interleaved
// CRC-8/CRC-16 tracking, the STREAMINFO and SEEKTABLE metadata codecs, the
// frame header codec, and the Rice residual decoder.
//
// Everything that depends on decoded audio samples themselves -- subframe
// prediction, LPC estimation, the top-level container walker, and any CLI --
// lives outside this module and is treated as an external collaborator.
package flaccore

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies the way an operation on this package failed.
type Kind int

// The kinds of failure an operation in this package can report.
const (
	// EndOfStream indicates the underlying byte source was exhausted before
	// enough bits or bytes were available to satisfy a read.
	EndOfStream Kind = iota
	// InvalidData indicates a violation of a FLAC format rule: bad sync,
	// reserved bit pattern, CRC mismatch, out-of-range field, misordered
	// seek points, invalid UTF-8 position.
	InvalidData
	// InvalidState indicates a serializer was invoked while its invariants
	// were violated.
	InvalidState
	// InvalidArgument indicates the caller violated a documented
	// precondition, such as a bit count or byte depth out of range.
	InvalidArgument
	// NotAligned indicates a byte-boundary-only operation was called while
	// mid-byte.
	NotAligned
	// Unsupported indicates seek or length was requested of a byte source
	// that does not support it.
	Unsupported
	// ResidualTooLarge indicates a Rice-coded unary prefix grew past the
	// conservative overflow guard before terminating.
	ResidualTooLarge
)

func (k Kind) String() string {
	switch k {
	case EndOfStream:
		return "end of stream"
	case InvalidData:
		return "invalid data"
	case InvalidState:
		return "invalid state"
	case InvalidArgument:
		return "invalid argument"
	case NotAligned:
		return "not aligned"
	case Unsupported:
		return "unsupported"
	case ResidualTooLarge:
		return "residual too large"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by every operation in this module and its
// subpackages. Op names the failing operation (e.g. "bitio.Reader.ReadUint"),
// Kind classifies the failure, and Err, when non-nil, is the underlying
// cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap allows errors.Is and errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a *Error of the given kind and operation with a freshly
// constructed message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf is like New but formats its message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap annotates err with the operation that observed it. If err is not
// already a *Error, the result has the given kind and a stack trace attached
// via pkg/errors; if it is, its kind and cause are kept and kind is ignored.
// Wrap returns nil if err is nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		// Already one of ours; preserve the original kind and cause, only
		// record the outer operation for context.
		return &Error{Kind: e.Kind, Op: op + ": " + e.Op, Err: e.Err}
	}
	return &Error{Kind: kind, Op: op, Err: pkgerrors.WithStack(err)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
