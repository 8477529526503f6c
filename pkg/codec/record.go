package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// HeaderSize is the length of the record frame header:
// CRC32(4) + PayloadSize(4) + Timestamp(8)
const HeaderSize = 16

// Record is one checksummed payload frame
type Record struct {
	CRC32       uint32 // CRC32 checksum for integrity
	PayloadSize uint32 // Size of the payload in bytes
	Timestamp   uint64 // Unix timestamp in nanoseconds
	Payload     []byte
}

// NewRecord creates a new record with current timestamp
func NewRecord(payload []byte) (*Record, error) {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(payload))
	}
	r := &Record{
		PayloadSize: uint32(len(payload)),
		Timestamp:   uint64(time.Now().UnixNano()),
		Payload:     payload,
	}
	r.CRC32 = r.calculateCRC32()
	return r, nil
}

// Encode serializes the record
// Format: [CRC32(4)][PayloadSize(4)][Timestamp(8)][Payload]
func (r *Record) Encode() []byte {
	buf := make([]byte, r.Size())

	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], r.PayloadSize)
	binary.LittleEndian.PutUint64(buf[8:], r.Timestamp)
	copy(buf[HeaderSize:], r.Payload)

	return buf
}

// DecodeRecord parses a frame without validating its checksum
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: data too short for record header: %d < %d", ErrCorruption, len(data), HeaderSize)
	}

	r := &Record{}
	r.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	r.PayloadSize = binary.LittleEndian.Uint32(data[4:8])
	r.Timestamp = binary.LittleEndian.Uint64(data[8:16])

	if uint64(len(data)-HeaderSize) != uint64(r.PayloadSize) {
		return nil, fmt.Errorf("%w: payload size mismatch: %d != %d", ErrCorruption, len(data)-HeaderSize, r.PayloadSize)
	}
	r.Payload = data[HeaderSize:]

	return r, nil
}

// Validate checks the integrity of a record using CRC32
func (r *Record) Validate() error {
	if sum := r.calculateCRC32(); r.CRC32 != sum {
		return fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrCorruption, r.CRC32, sum)
	}
	return nil
}

// Size returns the total size of the record when encoded
func (r *Record) Size() int {
	return HeaderSize + len(r.Payload)
}

// WrittenAt returns the frame timestamp
func (r *Record) WrittenAt() time.Time {
	return time.Unix(0, int64(r.Timestamp))
}

// calculateCRC32 covers every header field after the checksum, then the payload
func (r *Record) calculateCRC32() uint32 {
	var header [HeaderSize - 4]byte
	binary.LittleEndian.PutUint32(header[0:], r.PayloadSize)
	binary.LittleEndian.PutUint64(header[4:], r.Timestamp)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(header[:])
	_, _ = crc.Write(r.Payload)
	return crc.Sum32()
}

// Checksummed frames the output of another codec in a Record and verifies
// the checksum before handing the payload back to it.
type Checksummed[T any] struct {
	Inner Codec[T]
}

// NewChecksummed wraps inner
func NewChecksummed[T any](inner Codec[T]) Checksummed[T] {
	return Checksummed[T]{Inner: inner}
}

func (c Checksummed[T]) Serialize(value T) ([]byte, error) {
	payload, err := c.Inner.Serialize(value)
	if err != nil {
		return nil, err
	}
	r, err := NewRecord(payload)
	if err != nil {
		return nil, err
	}
	return r.Encode(), nil
}

func (c Checksummed[T]) Deserialize(data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, fmt.Errorf("checksum deserialize: %w", ErrEmpty)
	}
	r, err := DecodeRecord(data)
	if err != nil {
		return zero, err
	}
	if err := r.Validate(); err != nil {
		return zero, err
	}
	return c.Inner.Deserialize(r.Payload)
}
