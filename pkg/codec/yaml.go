package codec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML encodes values with gopkg.in/yaml.v3
type YAML[T any] struct{}

func (YAML[T]) Serialize(value T) ([]byte, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, &Error{Op: "serialize", Format: FormatYAML, Err: err}
	}
	return data, nil
}

func (YAML[T]) Deserialize(data []byte) (T, error) {
	var value T
	// yaml.v3 decodes an empty document into the zero value without error
	if len(bytes.TrimSpace(data)) == 0 {
		return value, fmt.Errorf("%s deserialize: %w", FormatYAML, ErrEmpty)
	}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return value, &Error{Op: "deserialize", Format: FormatYAML, Err: err}
	}
	return value, nil
}
