//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"errors"
	"testing"
)

// FuzzRecord_RoundTrip tests encode/decode round-trip with random payloads
func FuzzRecord_RoundTrip(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte(`{"1":"a"}`))
	f.Add([]byte{0x00, 0x01, 0x02, 0xFF})

	f.Fuzz(func(t *testing.T, payload []byte) {
		if len(payload) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		r, err := NewRecord(payload)
		if err != nil {
			t.Fatalf("NewRecord failed: %v", err)
		}

		decoded, err := DecodeRecord(r.Encode())
		if err != nil {
			t.Fatalf("Decode failed: len(payload)=%d %v", len(payload), err)
		}
		if err := decoded.Validate(); err != nil {
			t.Fatalf("Record validation failed: %v", err)
		}
		if !bytes.Equal(decoded.Payload, payload) {
			t.Errorf("Payload mismatch: got %q, want %q", decoded.Payload, payload)
		}
	})
}

// FuzzRecord_CorruptionDetection tests that a flipped byte is always detected
func FuzzRecord_CorruptionDetection(f *testing.F) {
	f.Add([]byte("value"), uint(0))
	f.Add([]byte("john@example.com"), uint(5))
	f.Add([]byte("data"), uint(10))

	f.Fuzz(func(t *testing.T, payload []byte, corruptPos uint) {
		if len(payload) > 10000 {
			t.Skip("Input too large for fuzz test")
		}

		r, err := NewRecord(payload)
		if err != nil {
			t.Fatalf("NewRecord failed: %v", err)
		}
		encoded := r.Encode()
		pos := int(corruptPos % uint(len(encoded)))
		encoded[pos] ^= 0xFF

		decoded, err := DecodeRecord(encoded)
		if err == nil {
			err = decoded.Validate()
		}
		if !errors.Is(err, ErrCorruption) {
			t.Fatalf("corruption at byte %d not detected: %v", pos, err)
		}
	})
}
