package backend

import (
	"fmt"
)

// DefaultMmapSize is the initial capacity of NewMmap
const DefaultMmapSize = 1024

// anonMap is one anonymous mapping. end is the length of the payload,
// size the mapped capacity; end <= size always holds.
type anonMap struct {
	data []byte
	end  int
	size int
}

func newAnonMap(size int) (*anonMap, error) {
	if size < 1 {
		size = 1
	}
	data, err := mapAnon(size)
	if err != nil {
		return nil, wrap("mmap", "", err)
	}
	return &anonMap{data: data, size: size}, nil
}

// write copies data to the start of the mapping and moves end
func (m *anonMap) write(data []byte) error {
	if len(data) > m.size {
		return fmt.Errorf("%w: write of %d bytes beyond mmap capacity %d", ErrInternal, len(data), m.size)
	}
	m.end = copy(m.data[:len(data)], data)
	return nil
}

func (m *anonMap) flush() error {
	return wrap("msync", "", flushMap(m.data))
}

func (m *anonMap) close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return wrap("munmap", "", unmap(data))
}

// MmapStorage keeps the payload in an anonymous memory map that grows on
// demand and never shrinks.
//
// When a payload does not fit, a new mapping of max(2*capacity, len(payload))
// bytes replaces the old one. The old bytes are not copied across: every
// PutData writes the whole payload, so they would be overwritten anyway.
// Adding a partial or append write path would break that assumption and
// lose data.
type MmapStorage struct {
	mmap *anonMap
}

// NewMmap creates a storage with DefaultMmapSize bytes of capacity
func NewMmap() (*MmapStorage, error) {
	return NewMmapWithSize(DefaultMmapSize)
}

// NewMmapWithSize creates a storage with the given initial capacity
func NewMmapWithSize(size int) (*MmapStorage, error) {
	m, err := newAnonMap(size)
	if err != nil {
		return nil, err
	}
	return &MmapStorage{mmap: m}, nil
}

// Len returns the mapped capacity in bytes
func (s *MmapStorage) Len() int {
	return s.mmap.size
}

// End returns the length of the stored payload
func (s *MmapStorage) End() int {
	return s.mmap.end
}

// GetData returns a copy of the stored payload
func (s *MmapStorage) GetData() ([]byte, error) {
	if s.mmap.data == nil {
		return nil, ErrClosed
	}
	out := make([]byte, s.mmap.end)
	copy(out, s.mmap.data[:s.mmap.end])
	return out, nil
}

// PutData replaces the payload, growing the mapping first if needed
func (s *MmapStorage) PutData(data []byte) error {
	if s.mmap.data == nil {
		return ErrClosed
	}
	if len(data) > s.mmap.size {
		if err := s.grow(len(data)); err != nil {
			return err
		}
	}
	if err := s.mmap.write(data); err != nil {
		return err
	}
	return s.mmap.flush()
}

// grow maps the new region before releasing the old one, so a failed
// allocation leaves the storage untouched.
func (s *MmapStorage) grow(need int) error {
	next, err := newAnonMap(max(s.mmap.size*2, need))
	if err != nil {
		return err
	}
	old := s.mmap
	s.mmap = next
	return old.close()
}

// Close unmaps the region
func (s *MmapStorage) Close() error {
	return s.mmap.close()
}
