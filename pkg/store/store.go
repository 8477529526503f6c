// Package store mirrors one in-memory value to a backend through a codec.
//
// A Store guards its value with a reader/writer lock and its backend with a
// separate mutex. Mutations only touch memory; nothing reaches the backend
// until Save is called, and nothing is flushed implicitly on Close.
//
// A callback that panics inside Read, View or Write poisons the store: the
// panic propagates to the caller and every later access returns ErrPoisoned.
// WriteSafe runs its callback on a private copy instead and reports
// ErrWritePanicked without poisoning anything.
package store

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ssargent/breakdb/pkg/backend"
	"github.com/ssargent/breakdb/pkg/codec"
)

// Cloner is implemented by values that can deep-copy themselves. Values that
// don't are copied structurally with reflection.
type Cloner[T any] interface {
	Clone() T
}

// Store holds a value of type T and persists it on demand
type Store[T any] struct {
	value *guard[T]

	backendMu sync.Mutex
	backend   backend.Backend
	codec     codec.Codec[T]

	opts   options
	closed atomic.Bool
}

// New assembles a store from its parts without touching the backend
func New[T any](value T, b backend.Backend, c codec.Codec[T], opts ...Option) *Store[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		value:   newGuard(value),
		backend: b,
		codec:   c,
		opts:    o,
	}
}

// Read runs f with shared access to the value. Many readers may run at once.
// f receives a shallow copy; maps and slices inside it must not be mutated.
func (s *Store[T]) Read(f func(T) error) error {
	return s.View(func(v *T) error { return f(*v) })
}

// View is Read with a pointer to the stored value, avoiding the copy. The
// pointer must not be retained or written through.
func (s *Store[T]) View(f func(*T) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.value.read(f)
}

// ReadValue runs f under the read lock and returns its result
func ReadValue[T, R any](s *Store[T], f func(T) R) (R, error) {
	var out R
	err := s.Read(func(v T) error {
		out = f(v)
		return nil
	})
	return out, err
}

// Write runs f with exclusive access to the value. Changes f makes stay even
// if it returns an error. If f panics the store is poisoned and the panic
// continues up the stack.
func (s *Store[T]) Write(f func(*T) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.value.write(f)
}

// WriteSafe runs f against a deep copy of the value and commits the copy
// only if f returns nil. A panic in f is recovered and reported as
// ErrWritePanicked; the stored value is unchanged and the store stays usable.
func (s *Store[T]) WriteSafe(f func(*T) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	err := s.value.write(func(v *T) error {
		working := deepCopy(*v)
		if err := protect(func() error { return f(&working) }); err != nil {
			return err
		}
		*v = working
		return nil
	})

	if errors.Is(err, ErrWritePanicked) {
		s.opts.logger.Warn("write panicked, value left unchanged", "error", err)
	}
	s.opts.observer.RecordOperation(OpWrite, err == nil, time.Since(start), 0)
	return err
}

// protect turns a panic in f into an error
func protect(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return f()
}

// Load replaces the value with the one decoded from the backend
func (s *Store[T]) Load() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.value.poisoned() {
		return ErrPoisoned
	}
	start := time.Now()

	s.backendMu.Lock()
	defer s.backendMu.Unlock()

	data, err := s.backend.GetData()
	if err != nil {
		return s.finish(OpLoad, start, 0, &BackendError{Op: OpLoad, Err: err})
	}

	value, err := s.codec.Deserialize(data)
	if err != nil {
		return s.finish(OpLoad, start, len(data), &CodecError{Op: OpLoad, Err: err})
	}

	err = s.value.write(func(v *T) error {
		*v = value
		return nil
	})
	return s.finish(OpLoad, start, len(data), err)
}

// Save encodes the value and hands it to the backend.
//
// The value lock is released before the backend is touched, so readers and
// writers are not blocked by slow I/O. Concurrent saves reach the backend in
// no particular order; the last one to finish wins.
//
// Save takes the read lock itself, so it must not be called from inside a
// Read or View callback: a writer queued in between deadlocks both.
func (s *Store[T]) Save() error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()

	var data []byte
	err := s.value.read(func(v *T) error {
		encoded, err := s.codec.Serialize(*v)
		if err != nil {
			return &CodecError{Op: OpSave, Err: err}
		}
		data = encoded
		return nil
	})
	if err != nil {
		return s.finish(OpSave, start, 0, err)
	}

	s.backendMu.Lock()
	err = s.backend.PutData(data)
	s.backendMu.Unlock()
	if err != nil {
		err = &BackendError{Op: OpSave, Err: err}
	}
	return s.finish(OpSave, start, len(data), err)
}

func (s *Store[T]) finish(op string, start time.Time, size int, err error) error {
	duration := time.Since(start)
	s.opts.observer.RecordOperation(op, err == nil, duration, size)
	if err != nil {
		s.opts.logger.Error("store "+op+" failed", "error", err, "duration", duration)
		return err
	}
	s.opts.logger.Debug("store "+op, "bytes", size, "duration", duration)
	return nil
}

// GetData returns a deep copy of the value, loading it from the backend
// first when reload is set.
func (s *Store[T]) GetData(reload bool) (T, error) {
	var out T
	if reload {
		if err := s.Load(); err != nil {
			return out, err
		}
	}
	err := s.View(func(v *T) error {
		out = deepCopy(*v)
		return nil
	})
	return out, err
}

// PutData replaces the value and, if thenSave is set, persists it
func (s *Store[T]) PutData(value T, thenSave bool) error {
	err := s.Write(func(v *T) error {
		*v = value
		return nil
	})
	if err != nil || !thenSave {
		return err
	}
	return s.Save()
}

// TryClone returns an independent store holding a deep copy of the value
// over a fresh memory backend. Attach another backend with WithBackend to
// persist it elsewhere.
func (s *Store[T]) TryClone() (*Store[T], error) {
	value, err := s.GetData(false)
	if err != nil {
		return nil, err
	}
	clone := &Store[T]{
		value:   newGuard(value),
		backend: backend.NewMemory(),
		codec:   s.codec,
		opts:    s.opts,
	}
	return clone, nil
}

// WithBackend consumes the store and returns one with the same value and
// codec over b. The previous backend is closed if it is an io.Closer.
// Nothing is written to b until Save is called. If s was already consumed
// the result is closed and b is closed with it.
func (s *Store[T]) WithBackend(b backend.Backend) *Store[T] {
	value, poisoned, old, closed := s.dismantle()
	if closed {
		s.closeBackend(b)
	} else {
		s.closeBackend(old)
	}
	return s.rebuild(value, poisoned, closed, b, s.codec)
}

// WithCodec consumes the store and returns one with the same value and
// backend that encodes with c.
func (s *Store[T]) WithCodec(c codec.Codec[T]) *Store[T] {
	value, poisoned, b, closed := s.dismantle()
	return s.rebuild(value, poisoned, closed, b, c)
}

// ConvertData consumes s, applies migrate to its value and returns a store
// of the new type over the same backend, encoding with c. Nothing is written
// until Save is called on the result.
func ConvertData[T, U any](s *Store[T], migrate func(T) U, c codec.Codec[U]) (*Store[U], error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.value.poisoned() {
		return nil, ErrPoisoned
	}

	value, poisoned, b, closed := s.dismantle()
	if closed {
		return nil, ErrClosed
	}
	if poisoned {
		return nil, ErrPoisoned
	}

	converted := migrate(value)
	return &Store[U]{
		value:   newGuard(converted),
		backend: b,
		codec:   c,
		opts:    s.opts,
	}, nil
}

// IntoInner consumes the store and returns its value and backend
func (s *Store[T]) IntoInner() (T, backend.Backend, error) {
	var zero T
	value, poisoned, b, closed := s.dismantle()
	if closed {
		return zero, nil, ErrClosed
	}
	if poisoned {
		return zero, b, ErrPoisoned
	}
	return value, b, nil
}

// Close marks the store closed and closes its backend if it is an
// io.Closer. It does not save.
func (s *Store[T]) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.backendMu.Lock()
	defer s.backendMu.Unlock()

	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Backend returns the backend in use. It must not be used while the store
// is live.
func (s *Store[T]) Backend() backend.Backend {
	return s.backend
}

// dismantle takes both locks, moves the value and backend out and closes s.
// closed reports whether s had already been consumed.
func (s *Store[T]) dismantle() (value T, poisoned bool, b backend.Backend, closed bool) {
	s.backendMu.Lock()
	defer s.backendMu.Unlock()

	closed = s.closed.Swap(true)
	value, poisoned = s.value.take()
	b = s.backend
	return value, poisoned, b, closed
}

func (s *Store[T]) rebuild(value T, poisoned, closed bool, b backend.Backend, c codec.Codec[T]) *Store[T] {
	next := &Store[T]{
		value:   newGuard(value),
		backend: b,
		codec:   c,
		opts:    s.opts,
	}
	if poisoned {
		next.value.state.Store(int32(statePoisoned))
	}
	next.closed.Store(closed)
	return next
}

func (s *Store[T]) closeBackend(b backend.Backend) {
	if closer, ok := b.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.opts.logger.Warn("closing replaced backend failed", "error", err)
		}
	}
}

func deepCopy[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return copyValue(v)
}
