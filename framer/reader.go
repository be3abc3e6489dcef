package framer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds a single frame when no limit is configured.
const DefaultMaxFrameSize = 64 * 1024

var ErrFrameTooLarge = errors.New("framer: frame too large")

// Reader reads delimiter-terminated frames from a stream. It is the blocking
// "read until delimiter" primitive used by connection loops. A Reader is not
// safe for concurrent use.
type Reader struct {
	br      *bufio.Reader
	delim   byte
	maxSize int
}

// NewReader creates a Reader over r.
//
// Parameters:
//   - r: The underlying stream, typically a net.Conn
//   - delim: The frame terminator
//   - maxSize: Largest accepted frame in bytes; values <= 0 select DefaultMaxFrameSize
//
// Returns:
//   - A new Reader
func NewReader(r io.Reader, delim byte, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	return &Reader{
		br:      bufio.NewReaderSize(r, min(maxSize+1, 16*1024)),
		delim:   delim,
		maxSize: maxSize,
	}
}

// ReadFrame blocks until a full frame is available and returns it without its
// delimiter. The returned slice is owned by the caller.
//
// Returns:
//   - The next frame
//   - io.EOF if the stream ended on a frame boundary
//   - io.ErrUnexpectedEOF if the stream ended inside a frame; the partial
//     frame is discarded
//   - ErrFrameTooLarge if the frame exceeds the configured maximum
func (r *Reader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := r.br.ReadSlice(r.delim)
		frame = append(frame, chunk...)

		switch {
		case err == nil:
			frame = frame[:len(frame)-1]
			if len(frame) > r.maxSize {
				return nil, r.tooLarge()
			}

			return frame, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(frame) > r.maxSize {
				return nil, r.tooLarge()
			}

			continue
		case errors.Is(err, io.EOF):
			if len(frame) == 0 {
				return nil, io.EOF
			}

			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}

// HasFrame reports whether a complete frame is already buffered, in which
// case the next ReadFrame returns without touching the stream.
func (r *Reader) HasFrame() bool {
	n := r.br.Buffered()
	if n == 0 {
		return false
	}

	buf, err := r.br.Peek(n)
	if err != nil {
		return false
	}

	return bytes.IndexByte(buf, r.delim) >= 0
}

func (r *Reader) tooLarge() error {
	return fmt.Errorf("%w: exceeds %d bytes", ErrFrameTooLarge, r.maxSize)
}
