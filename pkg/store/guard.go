package store

import (
	"sync"
	"sync/atomic"
)

type guardState int32

const (
	stateClean guardState = iota
	stateLocked
	statePoisoned
)

func (s guardState) String() string {
	switch s {
	case stateClean:
		return "clean"
	case stateLocked:
		return "locked"
	case statePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// guard is a reader/writer lock around a value that poisons itself when a
// callback holding it does not return normally. Once poisoned it refuses
// every further access; poisoned is terminal.
type guard[T any] struct {
	mu    sync.RWMutex
	state atomic.Int32
	value T
}

func newGuard[T any](value T) *guard[T] {
	return &guard[T]{value: value}
}

func (g *guard[T]) poisoned() bool {
	return guardState(g.state.Load()) == statePoisoned
}

// read runs f with shared access
func (g *guard[T]) read(f func(*T) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.poisoned() {
		return ErrPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			g.state.Store(int32(statePoisoned))
		}
	}()

	err := f(&g.value)
	completed = true
	return err
}

// write runs f with exclusive access
func (g *guard[T]) write(f func(*T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned() {
		return ErrPoisoned
	}
	g.state.Store(int32(stateLocked))

	completed := false
	defer func() {
		if completed {
			g.state.Store(int32(stateClean))
		} else {
			g.state.Store(int32(statePoisoned))
		}
	}()

	err := f(&g.value)
	completed = true
	return err
}

// take moves the value out under the write lock, leaving the zero value
// behind. The poison state is returned alongside so it can be carried over.
func (g *guard[T]) take() (T, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var zero T
	value := g.value
	g.value = zero
	return value, g.poisoned()
}
