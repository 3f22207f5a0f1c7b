package social

import (
	"errors"
	"fmt"
)

// Error categories. Every adapter failure matches exactly one of these
// through errors.Is.
var (
	ErrAuthentication = errors.New("authentication error")
	ErrPublishing     = errors.New("publishing error")
	ErrMetrics        = errors.New("metrics error")
	ErrMessaging      = errors.New("messaging error")
	ErrComment        = errors.New("comment error")
)

var (
	// ErrUnsupported is returned when a platform has no API for an operation.
	ErrUnsupported = errors.New("operation not supported by platform")

	// ErrInvalidRequest is returned when input fails validation before any
	// network call is made.
	ErrInvalidRequest = errors.New("invalid request")
)

// Error is the concrete error returned by every adapter operation.
type Error struct {
	Kind     error
	Platform Platform
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Platform, e.Op, e.Err)
}

// Unwrap exposes both the category and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Wrap tags err with a category, platform and operation. It returns nil for
// a nil err and leaves an existing *Error untouched.
func Wrap(kind error, p Platform, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: kind, Platform: p, Op: op, Err: err}
}

// Unsupported builds the error returned for operations a platform lacks.
func Unsupported(kind error, p Platform, op string) error {
	return &Error{Kind: kind, Platform: p, Op: op, Err: ErrUnsupported}
}
