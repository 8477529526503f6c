package store

import "fmt"

// Errors
var (
	ErrPoisoned      = &StoreError{"store is poisoned: an earlier access panicked while holding the value lock"}
	ErrWritePanicked = &StoreError{"write panicked: value left unchanged"}
	ErrClosed        = &StoreError{"store is closed"}
)

// StoreError represents a store error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// BackendError wraps a failure of the backend during load or save
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// CodecError wraps a failure of the codec during load or save
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: codec: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// panicError carries the value recovered from a WriteSafe callback
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrWritePanicked.Message, e.value)
}

func (e *panicError) Is(target error) bool {
	return target == ErrWritePanicked
}
