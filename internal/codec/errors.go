package codec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes codec failures.
type ErrorCode string

const (
	// ErrCodeUnsupported means no codec handles the file extension.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_FORMAT"

	// ErrCodeVersion means the file was written by an incompatible version.
	ErrCodeVersion ErrorCode = "UNSUPPORTED_VERSION"

	// ErrCodeCorrupt means the file could be read but its content is invalid.
	ErrCodeCorrupt ErrorCode = "CORRUPT"

	// ErrCodeIO covers filesystem and database failures.
	ErrCodeIO ErrorCode = "IO"
)

// Error is returned by every codec operation.
type Error struct {
	Code ErrorCode
	// Op is "save" or "load".
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a codec error for invalid file content.
func IsCorrupt(err error) bool { return hasCode(err, ErrCodeCorrupt) }

// IsUnsupported reports whether err is a codec error for an unknown format
// or a format version this build cannot read.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupported) || hasCode(err, ErrCodeVersion)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newError(code ErrorCode, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}
