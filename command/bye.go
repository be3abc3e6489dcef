package command

import (
	"fmt"

	"github.com/cyberinferno/gamesession/codec"
)

// Bye ends the session. It carries no payload; anything after the
// identifier is ignored.
type Bye struct {
	ID string
}

// NewBye builds a BYE.
func NewBye() Bye {
	return Bye{ID: ByeID}
}

func (Bye) command() {}

// Identifier implements Command.
func (b Bye) Identifier() string { return b.ID }

// Encode implements Command.
func (b Bye) Encode() ([]byte, error) {
	return codec.PadString(b.ID, IDSize), nil
}

// DecodeBye decodes a BYE frame.
func DecodeBye(frame []byte) (Bye, error) {
	id, err := codec.NewReader(frame).ReadString(IDSize)
	if err != nil {
		return Bye{}, malformed("bye id", err)
	}

	if id != ByeID {
		return Bye{}, &ValidationError{Command: ByeID, Field: "id", Value: id, Reason: fmt.Sprintf("expected %s", ByeID)}
	}

	return Bye{ID: id}, nil
}
