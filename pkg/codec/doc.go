// Package codec converts a store's in-memory value to and from bytes.
//
// A Codec serializes the whole value at once; the store never looks inside
// the bytes it produces. JSON, YAML and Gob codecs are provided, and any of
// them can be wrapped with Checksummed to detect corruption on disk.
//
// # Checksummed frame
//
// Checksummed stores the inner codec's output in a record frame:
//
//	[CRC32(4)][PayloadSize(4)][Timestamp(8)][Payload]
//
// Fields:
//   - CRC32: IEEE checksum over every following byte (little-endian)
//   - PayloadSize: payload length in bytes (little-endian)
//   - Timestamp: Unix time in nanoseconds when the frame was written (little-endian)
//   - Payload: the inner codec's bytes
//
// Decoding a frame whose checksum or size does not match fails with
// ErrCorruption, so a damaged file is reported instead of being decoded
// into a wrong value.
//
// # Thread Safety
//
// All codecs in this package are stateless and safe for concurrent use.
package codec
