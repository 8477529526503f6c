// Package backend provides the byte sinks a store persists its value into.
//
// Every backend stores one opaque payload and replaces it in full on each
// write. A PutData immediately followed by GetData must return exactly the
// bytes that were put, including the empty payload.
package backend

import (
	"errors"
	"fmt"
)

// Backend reads and writes the complete payload of a store.
type Backend interface {
	// GetData returns the whole payload, or an empty slice if nothing
	// was ever written.
	GetData() ([]byte, error)

	// PutData replaces the whole payload.
	PutData(data []byte) error
}

// Errors
var (
	ErrLocked   = &BackendError{Message: "backend is locked by another process"}
	ErrInternal = &BackendError{Message: "internal backend invariant violated"}
	ErrClosed   = &BackendError{Message: "backend is closed"}
)

// BackendError represents a backend error
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Error wraps a failed I/O primitive with the operation that triggered it.
// errors.Is sees through it, so callers can still test for fs.ErrNotExist.
type Error struct {
	Op   string // e.g. "open", "write", "sync", "rename", "mmap"
	Path string // empty for anonymous resources
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Op: op, Path: path, Err: err}
}
