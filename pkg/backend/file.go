package backend

import (
	"io"
	"os"
)

// FileBackend persists the payload into one open file handle.
//
// Every PutData truncates and rewrites the whole file, then fsyncs it. This
// is not crash-atomic: a process killed mid-write leaves a truncated or
// partially overwritten file. Use PathBackend when that matters.
type FileBackend struct {
	file   *os.File
	locked bool
}

// OpenFile opens path for reading and writing, creating it if needed, and
// takes an exclusive advisory lock on it.
func OpenFile(path string) (*FileBackend, error) {
	b, _, err := OpenFileOrCreate(path)
	return b, err
}

// OpenFileOrCreate is OpenFile that also reports whether the file existed
// before the call.
func OpenFileOrCreate(path string) (*FileBackend, bool, error) {
	existed := isFile(path)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, false, wrap("open", path, err)
	}

	if err := lockFile(file); err != nil {
		_ = file.Close()
		return nil, false, err
	}

	return &FileBackend{file: file, locked: true}, existed, nil
}

// OpenExistingFile is OpenFile that fails, with an error matching
// fs.ErrNotExist, when path does not exist.
func OpenExistingFile(path string) (*FileBackend, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, wrap("open", path, err)
	}

	if err := lockFile(file); err != nil {
		_ = file.Close()
		return nil, err
	}

	return &FileBackend{file: file, locked: true}, nil
}

// FromFile uses an already open file. The file is not locked; the caller
// owns its lifecycle until Close is called on the backend.
func FromFile(file *os.File) *FileBackend {
	return &FileBackend{file: file}
}

// File returns the underlying handle
func (b *FileBackend) File() *os.File {
	return b.file
}

// GetData reads the whole file from the start
func (b *FileBackend) GetData() ([]byte, error) {
	if b.file == nil {
		return nil, ErrClosed
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, wrap("seek", b.file.Name(), err)
	}
	data, err := io.ReadAll(b.file)
	if err != nil {
		return nil, wrap("read", b.file.Name(), err)
	}
	return data, nil
}

// PutData truncates the file and writes data, then syncs it to disk
func (b *FileBackend) PutData(data []byte) error {
	if b.file == nil {
		return ErrClosed
	}
	name := b.file.Name()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return wrap("seek", name, err)
	}
	if err := b.file.Truncate(0); err != nil {
		return wrap("truncate", name, err)
	}
	if _, err := b.file.Write(data); err != nil {
		return wrap("write", name, err)
	}
	if err := b.file.Sync(); err != nil {
		return wrap("sync", name, err)
	}
	return nil
}

// Close releases the lock (if any) and closes the file
func (b *FileBackend) Close() error {
	if b.file == nil {
		return nil
	}
	file := b.file
	b.file = nil

	if b.locked {
		if err := unlockFile(file); err != nil {
			_ = file.Close()
			return wrap("unlock", file.Name(), err)
		}
	}
	return wrap("close", file.Name(), file.Close())
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
