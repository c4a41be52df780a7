package plan

import (
	"errors"
	"fmt"
)

// ErrMalformedInput marks fatal, non-retryable proposals: a total
// duration below MinDuration or not an exact multiple of BlockSize.
var ErrMalformedInput = errors.New("malformed proposal")

// TransientError wraps a parse/format failure from an external
// response. The builder retries the proposal unchanged.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// BlockViolationError reports a structural constraint violation against
// a named block or one of its task titles. The builder responds with a
// targeted split pass.
type BlockViolationError struct {
	Name string // block title or task title
	Err  error
}

func (e *BlockViolationError) Error() string {
	return fmt.Sprintf("block %q violates constraints: %v", e.Name, e.Err)
}
func (e *BlockViolationError) Unwrap() error { return e.Err }
