package helper

import (
	"fmt"
	"strings"
)

// Error wraps an original error with a trace of the operations it passed through
type Error struct {
	Original error
	Trace    []string
}

// NewError creates a new error with the given trace step.
// If the original error is already an Error, the trace step is prepended
// so the outermost operation is listed first.
func NewError(trace string, original error) error {
	if original == nil {
		return nil
	}

	if e, ok := original.(Error); ok {
		return Error{
			Original: e.Original,
			Trace:    append([]string{trace}, e.Trace...),
		}
	}

	return Error{
		Original: original,
		Trace:    []string{trace},
	}
}

// Error returns the trace joined with the original message
func (e Error) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Trace, ": "), e.Original)
}

// Unwrap returns the original error so errors.Is and errors.As keep working
func (e Error) Unwrap() error {
	return e.Original
}
