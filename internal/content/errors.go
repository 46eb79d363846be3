package content

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("authorization denied")
	ErrPersistence = errors.New("persistence failed")
)

// OpError is returned by repository mutations. It always matches
// ErrPersistence and unwraps to the original cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	switch e.Op {
	case "delete":
		return fmt.Sprintf("could not delete the content: %v", e.Err)
	default:
		return fmt.Sprintf("could not save the content: %v", e.Err)
	}
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == ErrPersistence }

// Invalidf builds a validation error.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Message returns the innermost user-facing message of err: the cause of an
// OpError, or err itself.
func Message(err error) string {
	var op *OpError
	if errors.As(err, &op) && op.Err != nil {
		return op.Err.Error()
	}
	return err.Error()
}
