// Package framer splits a byte stream into delimiter-terminated frames.
//
// A frame is the run of bytes between two delimiters, or between the start of
// the stream and the first delimiter. The delimiter never appears in a frame,
// and bytes after the last delimiter are held back until their terminator
// arrives.
package framer

import (
	"bytes"
	"iter"
)

const (
	// DelimiterGroup separates sub-blocks in the legacy grouping format.
	DelimiterGroup byte = '&'
	// DelimiterCommand terminates each command on the TCP transport.
	DelimiterCommand byte = '|'
)

// Split returns a lazy sequence over the complete frames of stream. It holds
// no state between calls; ranging over the sequence twice yields the same
// frames. Yielded slices alias stream.
//
// Parameters:
//   - stream: The raw bytes to scan
//   - delim: The frame terminator
//
// Returns:
//   - A sequence of frames, excluding any unterminated tail
func Split(stream []byte, delim byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		rest := stream
		for {
			i := bytes.IndexByte(rest, delim)
			if i < 0 {
				return
			}

			if !yield(rest[:i]) {
				return
			}

			rest = rest[i+1:]
		}
	}
}

// Frames is the eager form of Split. It also returns the unterminated tail so
// a caller reading from the network can prepend it to the next read.
//
// Returns:
//   - frames: Every complete frame, in order
//   - rest: Bytes after the last delimiter (aliases stream)
func Frames(stream []byte, delim byte) (frames [][]byte, rest []byte) {
	rest = stream
	for {
		i := bytes.IndexByte(rest, delim)
		if i < 0 {
			return frames, rest
		}

		frames = append(frames, rest[:i])
		rest = rest[i+1:]
	}
}
