package harness

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned for repetition/warm-up settings that
	// cannot produce an average, and for malformed operation sets.
	ErrInvalidConfiguration = errors.New("harness: invalid configuration")

	// ErrOperationFailure matches any *OperationError.
	ErrOperationFailure = errors.New("harness: operation failed")
)

// OperationError reports an error returned by a timed operation.
type OperationError struct {
	Operation  string
	Sweep      any
	Repetition int
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf(
		"operation %s at sweep %v (repetition %d): %v",
		e.Operation, e.Sweep, e.Repetition, e.Err,
	)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Is reports ErrOperationFailure as a match so callers need not know the
// concrete type.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailure
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}
