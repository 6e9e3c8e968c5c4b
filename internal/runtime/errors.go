package runtime

import (
	stderrors "errors"
	"fmt"
)

// ErrNotFound is returned (possibly wrapped) when the inspected resource
// does not exist. The controller treats it as "absent", not as a failure.
var ErrNotFound = stderrors.New("not found")

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// OperationError wraps a failed runtime operation with the operation name
// and the resource it targeted. Caught per-container by the controller.
type OperationError struct {
	Op       string
	Resource string
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Operationf builds an OperationError.
func Operationf(op, resource string, err error) error {
	return &OperationError{Op: op, Resource: resource, Err: err}
}

// VerificationError reports a post-operation state check that failed: the
// command was accepted but the runtime did not converge, e.g. a container
// still present after removal. Distinguished from OperationError so callers
// can tell command-acceptance failures apart from convergence failures.
type VerificationError struct {
	Resource string
	Expected string
	Actual   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Resource, e.Expected, e.Actual)
}

// IsVerification reports whether err is (or wraps) a VerificationError.
func IsVerification(err error) bool {
	var ve *VerificationError
	return stderrors.As(err, &ve)
}

// ConflictError reports a duplicate container name on add or rename.
// Rejected synchronously; no runtime call is attempted.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("container name %q is already managed", e.Name)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return stderrors.As(err, &ce)
}
