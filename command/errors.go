package command

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedMessage    = errors.New("command: malformed message")
	ErrTruncatedMessage    = errors.New("command: truncated message")
	ErrUnknownOperation    = errors.New("command: unknown operation")
	ErrUnrecognizedCommand = errors.New("command: unrecognized command")
	ErrValidation          = errors.New("command: validation failed")
	ErrLengthMismatch      = errors.New("command: property length mismatch")
)

// ValidationError reports a decoded field whose content violates the
// protocol. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Command string
	Field   string
	Value   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("command: %s has invalid %s [%s]: %s", e.Command, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
