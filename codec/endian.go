package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Widths of the integer fields used on the wire.
const (
	Uint32Size = 4
	Uint64Size = 8
)

// DecodeUint32LE reads a little-endian uint32 from the first four bytes of b.
//
// Returns:
//   - The decoded value
//   - ErrShortBuffer if b holds fewer than four bytes
func DecodeUint32LE(b []byte) (uint32, error) {
	if len(b) < Uint32Size {
		return 0, fmt.Errorf("%w: uint32 needs %d bytes, have %d", ErrShortBuffer, Uint32Size, len(b))
	}

	return binary.LittleEndian.Uint32(b), nil
}

// EncodeUint32LE returns v as four little-endian bytes.
func EncodeUint32LE(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(make([]byte, 0, Uint32Size), v)
}

// DecodeUint64LE reads a little-endian uint64 from the first eight bytes of b.
//
// Returns:
//   - The decoded value
//   - ErrShortBuffer if b holds fewer than eight bytes
func DecodeUint64LE(b []byte) (uint64, error) {
	if len(b) < Uint64Size {
		return 0, fmt.Errorf("%w: uint64 needs %d bytes, have %d", ErrShortBuffer, Uint64Size, len(b))
	}

	return binary.LittleEndian.Uint64(b), nil
}

// EncodeUint64LE returns v as eight little-endian bytes.
func EncodeUint64LE(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, Uint64Size), v)
}

// Uint32FromInt narrows n to uint32.
//
// Returns:
//   - n as a uint32
//   - ErrOverflow if n is negative or larger than math.MaxUint32
func Uint32FromInt(n int) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit in uint32", ErrOverflow, n)
	}

	return uint32(n), nil
}

// IntFromUint32 converts v to int, failing on platforms where int is 32 bits
// wide and v does not fit.
func IntFromUint32(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit in int", ErrOverflow, v)
	}

	return int(v), nil
}
