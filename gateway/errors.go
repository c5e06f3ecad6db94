package gateway

import "fmt"

// ValidationError reports a descriptor rejected by policy validation. It is
// never retried and always reaches the caller with the specific reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query rejected: %s", e.Reason)
}

// ExecutionError reports a backend execution failure (connection error,
// backend-side query error, timeout). Whether it was retried first is the
// backend adapter's concern; by the time it surfaces here it is terminal for
// the request.
type ExecutionError struct {
	Backend string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s execution failed: %v", e.Backend, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
