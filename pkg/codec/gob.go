package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Gob encodes values with encoding/gob, a compact binary format
type Gob[T any] struct{}

func (Gob[T]) Serialize(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, &Error{Op: "serialize", Format: FormatGob, Err: err}
	}
	return buf.Bytes(), nil
}

func (Gob[T]) Deserialize(data []byte) (T, error) {
	var value T
	if len(data) == 0 {
		return value, fmt.Errorf("%s deserialize: %w", FormatGob, ErrEmpty)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return value, &Error{Op: "deserialize", Format: FormatGob, Err: err}
	}
	return value, nil
}
