package gameserver

import (
	"errors"

	"github.com/cyberinferno/gamesession/command"
	"github.com/cyberinferno/gamesession/session"
)

var replyCodes = []struct {
	err  error
	code string
}{
	{command.ErrMalformedMessage, command.CodeMalformed},
	{command.ErrLengthMismatch, command.CodeMalformed},
	{command.ErrTruncatedMessage, command.CodeTruncated},
	{command.ErrValidation, command.CodeInvalid},
	{command.ErrUnknownOperation, command.CodeUnknownOp},
	{command.ErrUnrecognizedCommand, command.CodeUnrecognized},
	{session.ErrSessionAlreadyOpen, command.CodeAlreadyOpen},
	{session.ErrSessionNotOpen, command.CodeNotOpen},
	{session.ErrNotImplemented, command.CodeNotImpl},
	{ErrIdentityInUse, command.CodeInUse},
}

// replyFor maps a HandleFrame error to the reply sent to the client.
func replyFor(err error) command.Reply {
	if err == nil {
		return command.Ack("")
	}

	for _, rc := range replyCodes {
		if errors.Is(err, rc.err) {
			return command.Nak(rc.code, err.Error())
		}
	}

	return command.Nak(command.CodeInternal, err.Error())
}
