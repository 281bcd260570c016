// SPDX-License-Identifier: MIT

package tiffio

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch on it without
// matching message strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindFileNotFound
	KindReadError
	KindWriteError
	KindOutOfBounds
	KindUnexpectedEOF
	KindInvalidHeader
	KindInvalidFormat
	KindInvalidTag
	KindInvalidTagType
	KindUnsupportedFeature
	KindUnsupportedCompression
	KindCompressionError
	KindIOError
)

var kindNames = map[Kind]string{
	KindUnknown:                "Unknown",
	KindFileNotFound:           "FileNotFound",
	KindReadError:              "ReadError",
	KindWriteError:             "WriteError",
	KindOutOfBounds:            "OutOfBounds",
	KindUnexpectedEOF:          "UnexpectedEndOfFile",
	KindInvalidHeader:          "InvalidHeader",
	KindInvalidFormat:          "InvalidFormat",
	KindInvalidTag:             "InvalidTag",
	KindInvalidTagType:         "InvalidTagType",
	KindUnsupportedFeature:     "UnsupportedFeature",
	KindUnsupportedCompression: "UnsupportedCompression",
	KindCompressionError:       "CompressionError",
	KindIOError:                "IOError",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the structured error returned by every operation in this
// module. Offset is the file position of the offending structure, or
// -1 when no position applies.
type Error struct {
	Kind   Kind
	Msg    string
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Msg
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (offset %d)", msg, e.Offset)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Errf builds an *Error without a file offset.
func Errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Offset: -1}
}

// ErrfAt builds an *Error that names the file offset of the offending
// structure.
func ErrfAt(kind Kind, offset int64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Offset: offset}
}

// WrapErr attaches a kind to an underlying error, typically one
// returned by the operating system.
func WrapErr(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Offset: -1, Err: err}
}

// IsKind reports whether err or any error it wraps is an *Error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
