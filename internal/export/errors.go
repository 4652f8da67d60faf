package export

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes export failures.
type ErrorCode string

const (
	// ErrCodeEmptySelection means a selection export found nothing selected.
	ErrCodeEmptySelection ErrorCode = "EMPTY_SELECTION"

	// ErrCodeUnsupported means the requested format is unknown.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_FORMAT"

	// ErrCodeRender means a stroke failed to draw.
	ErrCodeRender ErrorCode = "RENDER"

	// ErrCodeIO covers write failures and cancellation.
	ErrCodeIO ErrorCode = "IO"
)

// Error is returned by every export function.
type Error struct {
	Code ErrorCode
	Op   string
	// Path is set by WriteFile.
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsEmptySelection reports whether err is an export of an empty selection.
func IsEmptySelection(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeEmptySelection
}
