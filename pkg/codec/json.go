package codec

import (
	"encoding/json"
	"fmt"
)

// JSON encodes values with encoding/json
type JSON[T any] struct {
	// Indent pretty-prints the output with the given indent when set
	Indent string
}

func (c JSON[T]) Serialize(value T) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.Indent != "" {
		data, err = json.MarshalIndent(value, "", c.Indent)
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return nil, &Error{Op: "serialize", Format: FormatJSON, Err: err}
	}
	return data, nil
}

func (c JSON[T]) Deserialize(data []byte) (T, error) {
	var value T
	if len(data) == 0 {
		return value, fmt.Errorf("%s deserialize: %w", FormatJSON, ErrEmpty)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, &Error{Op: "deserialize", Format: FormatJSON, Err: err}
	}
	return value, nil
}
