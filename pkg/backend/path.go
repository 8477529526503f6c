package backend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/segmentio/ksuid"
)

// PathBackend persists the payload to a file identified by its path.
//
// It holds no open handle between calls. Writes go to a temporary file in
// the same directory which is synced and then renamed over the target, so a
// reader of the path sees either the previous payload or the new one, never
// a mixture, even if the process dies mid-save.
type PathBackend struct {
	path string

	// beforeRename runs after the temporary file is synced and closed.
	// Returning an error aborts the save as if the process had died there.
	beforeRename func(tmpPath string) error
}

// NewPath creates a backend for path without checking that it exists
func NewPath(path string) *PathBackend {
	return &PathBackend{path: path}
}

// OpenPath creates a backend for an existing file. The returned error
// matches fs.ErrNotExist when the file is missing.
func OpenPath(path string) (*PathBackend, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrap("open", path, err)
	}
	if err := file.Close(); err != nil {
		return nil, wrap("close", path, err)
	}
	return &PathBackend{path: path}, nil
}

// OpenPathOrCreate creates the file if it does not exist yet and reports
// whether it already existed.
func OpenPathOrCreate(path string) (*PathBackend, bool, error) {
	return OpenPathOrCreateWith(path, nil)
}

// OpenPathOrCreateWith is OpenPathOrCreate that runs init against the file
// only when this call created it. If init fails the new file is removed.
func OpenPathOrCreateWith(path string, init func(*os.File) error) (*PathBackend, bool, error) {
	existed := isFile(path)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, false, wrap("open", path, err)
	}

	if !existed && init != nil {
		if err := init(file); err != nil {
			discard(file, path)
			return nil, false, fmt.Errorf("initialize %s: %w", path, err)
		}
	}

	if err := file.Close(); err != nil {
		if !existed {
			_ = os.Remove(path)
		}
		return nil, false, wrap("close", path, err)
	}
	return &PathBackend{path: path}, existed, nil
}

// Path returns the target path
func (b *PathBackend) Path() string {
	return b.path
}

// GetData reads the whole target file
func (b *PathBackend) GetData() ([]byte, error) {
	file, err := os.Open(b.path)
	if err != nil {
		return nil, wrap("open", b.path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, wrap("read", b.path, err)
	}
	return data, nil
}

// PutData atomically replaces the target file with data
func (b *PathBackend) PutData(data []byte) error {
	dir := filepath.Dir(b.path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(b.path), ksuid.New().String()))

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return wrap("create", tmpPath, err)
	}

	// Keep the permissions of the file being replaced
	if info, err := os.Stat(b.path); err == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			discard(tmp, tmpPath)
			return wrap("chmod", tmpPath, err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		discard(tmp, tmpPath)
		return wrap("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		discard(tmp, tmpPath)
		return wrap("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return wrap("close", tmpPath, err)
	}

	if b.beforeRename != nil {
		if err := b.beforeRename(tmpPath); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return wrap("rename", b.path, err)
	}

	syncDir(dir)
	return nil
}

func discard(f *os.File, path string) {
	_ = f.Close()
	_ = os.Remove(path)
}

// syncDir makes the rename durable where the platform allows fsync on a
// directory. Failures are ignored: the payload itself is already synced.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
