package store

import (
	"io"
	"os"
	"reflect"

	"github.com/ssargent/breakdb/pkg/backend"
	"github.com/ssargent/breakdb/pkg/codec"
)

// Memory creates a store over a fresh memory backend and saves value into it
func Memory[T any](value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return create(value, backend.NewMemory(), c, opts)
}

// Mmap creates a store over an anonymous memory map of the default size
func Mmap[T any](value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return MmapWithSize(value, backend.DefaultMmapSize, c, opts...)
}

// MmapWithSize creates a store over an anonymous memory map of size bytes
func MmapWithSize[T any](value T, size int, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, err := backend.NewMmapWithSize(size)
	if err != nil {
		return nil, &BackendError{Op: "create", Err: err}
	}
	return create(value, b, c, opts)
}

// FromFile creates a store over an already open file and saves value into it
func FromFile[T any](file *os.File, value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return create(value, backend.FromFile(file), c, opts)
}

// CreateFile opens (or creates) path with a FileBackend and overwrites it
// with value.
func CreateFile[T any](path string, value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, err := backend.OpenFile(path)
	if err != nil {
		return nil, &BackendError{Op: "create", Err: err}
	}
	return create(value, b, c, opts)
}

// LoadFile loads a store from an existing file. The error matches
// fs.ErrNotExist when the file is missing.
func LoadFile[T any](path string, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, err := backend.OpenExistingFile(path)
	if err != nil {
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	return load(b, c, opts)
}

// LoadFileOr loads the store from path, or creates the file holding value
// if it does not exist.
func LoadFileOr[T any](path string, value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return LoadFileOrElse(path, func() T { return value }, c, opts...)
}

// LoadFileOrElse is LoadFileOr with a lazily built initial value; init only
// runs when the file is created.
func LoadFileOrElse[T any](path string, init func() T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, existed, err := backend.OpenFileOrCreate(path)
	if err != nil {
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	return loadOrCreate(b, existed, init, c, opts, removeFile(path))
}

// LoadFileOrDefault is LoadFileOr with the empty value of T
func LoadFileOrDefault[T any](path string, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return LoadFileOrElse(path, emptyValue[T], c, opts...)
}

// CreatePath creates a store at path with atomic saves and writes value
func CreatePath[T any](path string, value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, _, err := backend.OpenPathOrCreate(path)
	if err != nil {
		return nil, &BackendError{Op: "create", Err: err}
	}
	return create(value, b, c, opts)
}

// LoadPath loads a store with atomic saves from an existing file. The error
// matches fs.ErrNotExist when the file is missing.
func LoadPath[T any](path string, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, err := backend.OpenPath(path)
	if err != nil {
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	return load(b, c, opts)
}

// LoadPathOr loads the store from path, or creates it holding value
func LoadPathOr[T any](path string, value T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return LoadPathOrElse(path, func() T { return value }, c, opts...)
}

// LoadPathOrElse is LoadPathOr with a lazily built initial value
func LoadPathOrElse[T any](path string, init func() T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, existed, err := backend.OpenPathOrCreate(path)
	if err != nil {
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	return loadOrCreate(b, existed, init, c, opts, removeFile(path))
}

// LoadPathOrDefault is LoadPathOr with the empty value of T
func LoadPathOrDefault[T any](path string, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	return LoadPathOrElse(path, emptyValue[T], c, opts...)
}

// OpenPebble creates or loads a store kept in a pebble database in dir
func OpenPebble[T any](dir string, init func() T, c codec.Codec[T], opts ...Option) (*Store[T], error) {
	b, err := backend.OpenPebble(dir)
	if err != nil {
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	data, err := b.GetData()
	if err != nil {
		closeQuietly(b)
		return nil, &BackendError{Op: OpLoad, Err: err}
	}
	return loadOrCreate(b, len(data) > 0, init, c, opts, nil)
}

func create[T any](value T, b backend.Backend, c codec.Codec[T], opts []Option) (*Store[T], error) {
	s := New(value, b, c, opts...)
	if err := s.Save(); err != nil {
		closeQuietly(b)
		return nil, err
	}
	return s, nil
}

func load[T any](b backend.Backend, c codec.Codec[T], opts []Option) (*Store[T], error) {
	s := New(emptyValue[T](), b, c, opts...)
	if err := s.Load(); err != nil {
		closeQuietly(b)
		return nil, err
	}
	return s, nil
}

// loadOrCreate loads from b, or saves init into it when the target did not
// exist. If that first save fails, discard undoes the creation so the next
// attempt starts over instead of finding an empty target.
func loadOrCreate[T any](b backend.Backend, existed bool, init func() T, c codec.Codec[T], opts []Option, discard func()) (*Store[T], error) {
	if existed {
		return load(b, c, opts)
	}
	s, err := create(init(), b, c, opts)
	if err != nil && discard != nil {
		discard()
	}
	return s, err
}

func removeFile(path string) func() {
	return func() {
		_ = os.Remove(path)
	}
}

func closeQuietly(b backend.Backend) {
	if closer, ok := b.(io.Closer); ok {
		_ = closer.Close()
	}
}

// emptyValue is the zero value of T, except that maps are allocated so the
// result can be written to straight away.
func emptyValue[T any]() T {
	var v T
	rv := reflect.ValueOf(&v).Elem()
	if rv.Kind() == reflect.Map {
		rv.Set(reflect.MakeMap(rv.Type()))
	}
	return v
}
