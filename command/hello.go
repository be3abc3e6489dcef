package command

import (
	"unicode"

	"github.com/cyberinferno/gamesession/codec"
)

// UserSize is the width of the HELLO user field.
const UserSize = 32

// helloHeaderSize is the fixed part of a HELLO: identifier and user.
const helloHeaderSize = IDSize + UserSize

// Hello opens a session for User. Message is free ASCII text that runs to
// the end of the frame.
type Hello struct {
	ID      string
	User    string
	Message string
}

// NewHello builds a HELLO from user with the given message.
func NewHello(user, message string) Hello {
	return Hello{ID: HelloID, User: user, Message: message}
}

func (Hello) command() {}

// Identifier implements Command.
func (h Hello) Identifier() string { return h.ID }

// Encode implements Command. The layout is the identifier padded to 8 bytes,
// the user padded to 32 bytes, then the message at its natural length. A
// user longer than 32 bytes is truncated.
func (h Hello) Encode() ([]byte, error) {
	return codec.Join(
		codec.PadString(h.ID, IDSize),
		codec.PadString(h.User, UserSize),
		[]byte(h.Message),
	), nil
}

// Validate checks the identifier and that user and message are pure ASCII.
func (h Hello) Validate() error {
	if h.ID != HelloID {
		return &ValidationError{Command: HelloID, Field: "id", Value: h.ID, Reason: "unexpected identifier"}
	}

	if !isASCII(h.User) {
		return &ValidationError{Command: HelloID, Field: "user", Value: h.User, Reason: "not ASCII"}
	}

	if !isASCII(h.Message) {
		return &ValidationError{Command: HelloID, Field: "message", Value: h.Message, Reason: "not ASCII"}
	}

	return nil
}

// DecodeHello decodes and validates a HELLO frame.
//
// Returns:
//   - The decoded Hello
//   - ErrMalformedMessage if the frame is shorter than 40 bytes
//   - A *ValidationError if a field fails validation
func DecodeHello(frame []byte) (Hello, error) {
	r := codec.NewReader(frame)

	id, err := r.ReadString(IDSize)
	if err != nil {
		return Hello{}, malformed("hello id", err)
	}

	user, err := r.ReadString(UserSize)
	if err != nil {
		return Hello{}, malformed("hello user", err)
	}

	h := Hello{ID: id, User: user, Message: string(r.Rest())}
	if err := h.Validate(); err != nil {
		return Hello{}, err
	}

	return h, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}

	return true
}
