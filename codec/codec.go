// Package codec provides the fixed-width primitives of the game wire format:
// NUL padding and trimming of text fields, little-endian integers, checked
// narrowing conversions and a cursor for sequential field reads.
package codec

import (
	"bytes"
	"errors"
)

var (
	ErrShortBuffer = errors.New("codec: short buffer")
	ErrOverflow    = errors.New("codec: integer overflow")
)

// PadTo returns a buffer of exactly length bytes holding b. If b is shorter
// than length, the remainder is zero-filled; if longer, b is truncated.
//
// Parameters:
//   - b: The bytes to place at the start of the buffer
//   - length: The fixed length of the resulting buffer
//
// Returns:
//   - A new byte slice of length bytes
func PadTo(b []byte, length int) []byte {
	out := make([]byte, length)
	copy(out, b)
	return out
}

// PadString is PadTo for a string field.
func PadString(s string, length int) []byte {
	out := make([]byte, length)
	copy(out, s)
	return out
}

// TrimTrailingZeros returns b without its trailing NUL bytes. NUL bytes that
// appear before the last non-zero byte are kept. An all-zero input yields an
// empty slice.
//
// Parameters:
//   - b: The buffer to trim
//
// Returns:
//   - A new slice with trailing 0x00 bytes removed
func TrimTrailingZeros(b []byte) []byte {
	trimmed := bytes.TrimRight(b, "\x00")
	out := make([]byte, len(trimmed))
	copy(out, trimmed)
	return out
}

// Join concatenates the given byte slices into a single new slice.
//
// Parameters:
//   - parts: Byte slices to concatenate, in order
//
// Returns:
//   - A new byte slice containing all parts
func Join(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	out, i := make([]byte, n), 0
	for _, p := range parts {
		i += copy(out[i:], p)
	}

	return out
}
