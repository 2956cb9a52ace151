package changelog

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every error describing malformed changelog text.
	ErrParse = errors.New("changelog parse error")

	// ErrCreate is returned when rendering a block that lacks required fields.
	ErrCreate = errors.New("changelog create error")

	// ErrEncoding is returned when text cannot be decoded from or encoded to
	// the requested encoding.
	ErrEncoding = errors.New("changelog encoding error")
)

// ParseError reports a structural error at a given line of the input.
type ParseError struct {
	// Line is the 1-based line number, or 0 when the error is about the
	// input as a whole (for instance an unexpected end of file).
	Line int
	// Text is the offending line.
	Text string
	// Reason describes what was wrong.
	Reason string
	// Err is the underlying cause, if any (for instance an invalid version).
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line == 0 {
		return fmt.Sprintf("changelog: %s", msg)
	}
	return fmt.Sprintf("changelog: line %d: %s: %q", e.Line, msg, e.Text)
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func createError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCreate, fmt.Sprintf(format, args...))
}
