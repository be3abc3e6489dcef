// Package command implements the binary commands exchanged with game clients:
// HELLO, BYE and PUTOBJ, plus the replies the server sends back.
//
// Every command starts with an 8-byte identifier, NUL-padded on the right.
// Fixed-width fields are read before variable-length ones and decoding is
// all-or-nothing: a command is returned only if every field decoded.
package command

import (
	"fmt"

	"github.com/cyberinferno/gamesession/codec"
)

// Command identifiers as they appear on the wire, before padding.
const (
	HelloID  = "HELO"
	ByeID    = "BYYE"
	PutObjID = "PUTOBJ"
)

// IDSize is the width of the identifier field that starts every command.
const IDSize = 8

// Command is a decoded protocol message. The set of implementations is
// closed: Hello, Bye and PutObj.
type Command interface {
	// Identifier returns the wire identifier, e.g. "HELO".
	Identifier() string

	// Encode serializes the command into its wire layout, without the
	// transport delimiter.
	Encode() ([]byte, error)

	command()
}

// Decode reads the identifier of frame and decodes the matching command.
//
// Parameters:
//   - frame: One delimiter-free frame as produced by the framer
//
// Returns:
//   - The decoded command
//   - ErrMalformedMessage if the frame cannot hold an identifier, or an error
//     from the variant decoder
//   - ErrUnrecognizedCommand if the identifier is not known
func Decode(frame []byte) (Command, error) {
	id, err := PeekIdentifier(frame)
	if err != nil {
		return nil, err
	}

	switch id {
	case HelloID:
		return DecodeHello(frame)
	case ByeID:
		return DecodeBye(frame)
	case PutObjID:
		return DecodePutObj(frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, id)
	}
}

// PeekIdentifier returns the trimmed identifier of frame without decoding
// the rest of it.
func PeekIdentifier(frame []byte) (string, error) {
	id, err := codec.NewReader(frame).ReadString(IDSize)
	if err != nil {
		return "", malformed("identifier", err)
	}

	return id, nil
}

func malformed(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedMessage, field, err)
}

func truncated(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTruncatedMessage, field, err)
}
