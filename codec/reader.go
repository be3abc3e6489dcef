package codec

import "fmt"

// Reader is a forward-only cursor over a byte slice. Fixed-width reads either
// consume exactly the requested bytes or fail with ErrShortBuffer without
// moving the cursor, so several decoders can share one Reader in sequence.
//
// Slices returned by Reader alias the underlying buffer.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.off
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// ReadFixed consumes exactly n bytes.
//
// Parameters:
//   - n: Number of bytes to read
//
// Returns:
//   - The next n bytes
//   - ErrShortBuffer if fewer than n bytes remain
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, r.Len())
	}

	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadString consumes an n-byte NUL-padded text field and returns it with the
// trailing NUL bytes removed.
func (r *Reader) ReadString(n int) (string, error) {
	b, err := r.ReadFixed(n)
	if err != nil {
		return "", err
	}

	return string(TrimTrailingZeros(b)), nil
}

// ReadUint32LE consumes a little-endian uint32.
func (r *Reader) ReadUint32LE() (uint32, error) {
	b, err := r.ReadFixed(Uint32Size)
	if err != nil {
		return 0, err
	}

	return DecodeUint32LE(b)
}

// ReadUint64LE consumes a little-endian uint64.
func (r *Reader) ReadUint64LE() (uint64, error) {
	b, err := r.ReadFixed(Uint64Size)
	if err != nil {
		return 0, err
	}

	return DecodeUint64LE(b)
}

// Rest consumes and returns every unread byte. It never fails; an exhausted
// Reader yields an empty slice.
func (r *Reader) Rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}
