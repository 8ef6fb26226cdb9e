package rx

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrContractViolation is reported when a source signals after it terminated.
	ErrContractViolation = errors.New("rx: signal after terminal event")

	// ErrSchedulerClosed is reported when a task is scheduled on a closed scheduler.
	ErrSchedulerClosed = errors.New("rx: scheduler closed")
)

// PanicError carries a panic recovered from user code inside a stream.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rx: recovered panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}
