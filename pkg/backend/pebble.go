package backend

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

var defaultPebbleKey = []byte("breakdb/payload")

// PebbleBackend stores the payload as a single value in a pebble database.
// Writes go through pebble's WAL with Sync, so they are durable and atomic.
type PebbleBackend struct {
	db  *pebble.DB
	dir string
	key []byte
}

// OpenPebble opens (or creates) a pebble database in dir
func OpenPebble(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, wrap("open", dir, err)
	}
	return &PebbleBackend{db: db, dir: dir, key: defaultPebbleKey}, nil
}

// WithKey stores the payload under key instead of the default one, so
// several stores can share a pebble directory.
func (b *PebbleBackend) WithKey(key string) *PebbleBackend {
	b.key = []byte(key)
	return b
}

// GetData returns the stored payload, or an empty slice if none was written
func (b *PebbleBackend) GetData() ([]byte, error) {
	if b.db == nil {
		return nil, ErrClosed
	}
	value, closer, err := b.db.Get(b.key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return []byte{}, nil
		}
		return nil, wrap("get", b.dir, err)
	}
	defer closer.Close()

	// value is only valid until closer.Close
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// PutData replaces the stored payload
func (b *PebbleBackend) PutData(data []byte) error {
	if b.db == nil {
		return ErrClosed
	}
	return wrap("set", b.dir, b.db.Set(b.key, data, pebble.Sync))
}

// Close closes the pebble database
func (b *PebbleBackend) Close() error {
	if b.db == nil {
		return nil
	}
	db := b.db
	b.db = nil
	return wrap("close", b.dir, db.Close())
}
