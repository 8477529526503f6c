package codec

import (
	"fmt"
	"strings"
)

// Codec bundles serialization and deserialization of a whole value
type Codec[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// Errors
var (
	ErrEmpty          = &CodecError{"empty payload"}
	ErrCorruption     = &CodecError{"payload corruption detected"}
	ErrUnknownFormat  = &CodecError{"unknown codec format"}
	ErrPayloadTooLong = &CodecError{"payload too large for record frame"}
)

// CodecError represents a codec error
type CodecError struct {
	Message string
}

func (e *CodecError) Error() string {
	return e.Message
}

// Error reports a failure of the underlying encoding library
type Error struct {
	Op     string // "serialize" or "deserialize"
	Format string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Format, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format names accepted by ByName
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatGob  = "gob"

	// ChecksumSuffix appended to a format name selects the checksummed frame
	ChecksumSuffix = "+crc"
)

// ByName returns the codec for a format name. A "+crc" suffix (for example
// "json+crc") wraps it with Checksummed.
func ByName[T any](name string) (Codec[T], error) {
	format, checksum := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), ChecksumSuffix)

	var c Codec[T]
	switch format {
	case FormatJSON, "":
		c = JSON[T]{}
	case FormatYAML, "yml":
		c = YAML[T]{}
	case FormatGob:
		c = Gob[T]{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	if checksum {
		c = NewChecksummed(c)
	}
	return c, nil
}
