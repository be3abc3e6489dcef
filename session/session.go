// Package session holds the per-connection protocol state of a game client
// and the rules that decide which commands are legal in which state.
//
// A Session is a plain value. The connection goroutine owns the live copy and
// mutates it through Touch and Apply; other components only ever receive
// copies.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyberinferno/gamesession/command"
	"github.com/google/uuid"
)

var (
	ErrSessionAlreadyOpen = errors.New("session: already open")
	ErrSessionNotOpen     = errors.New("session: not open")
	ErrNotImplemented     = errors.New("session: command not implemented")
)

// State is the protocol state of a session.
type State int

const (
	Closed State = iota // No HELLO accepted yet, or closed by BYE
	Active              // HELLO accepted
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Active:
		return "Active"
	default:
		return "Unknown"
	}
}

// Session is the server-side view of one connected client.
type Session struct {
	// Handle identifies the connection for the lifetime of the session.
	Handle uuid.UUID `json:"handle"`
	// Identity is the user name from the last accepted HELLO. Only
	// meaningful when HasIdentity is true.
	Identity    string `json:"identity"`
	HasIdentity bool   `json:"has_identity"`
	State       State  `json:"state"`
	// MessageCount counts every framed message, including ones that failed
	// to decode or were rejected.
	MessageCount      uint64    `json:"message_count"`
	LastCommunication time.Time `json:"last_communication"`
	ConnectedAt       time.Time `json:"connected_at"`
	RemoteAddr        string    `json:"remote_addr"`
}

// New creates a Closed session with no identity for a freshly accepted
// connection.
//
// Parameters:
//   - remoteAddr: Address of the peer, for logging
//   - now: Connection time; also the initial LastCommunication
//
// Returns:
//   - The new session
func New(remoteAddr string, now time.Time) Session {
	return Session{
		Handle:            uuid.New(),
		State:             Closed,
		LastCommunication: now,
		ConnectedAt:       now,
		RemoteAddr:        remoteAddr,
	}
}

// IdentityOf returns the session identity and whether one is set.
func (s Session) IdentityOf() (string, bool) {
	return s.Identity, s.HasIdentity
}

// Touch records that a framed message arrived at now. It runs before the
// message is decoded, so rejected messages are counted too.
func (s *Session) Touch(now time.Time) {
	s.MessageCount++
	s.LastCommunication = now
}

// Apply runs cmd through the state machine.
//
//	Closed + Hello  -> Active, identity set from the user field
//	Active + Hello  -> ErrSessionAlreadyOpen
//	Closed + Bye    -> ErrSessionNotOpen
//	Active + Bye    -> Closed, identity kept as last known
//	any    + PutObj -> ErrNotImplemented
//
// A rejected command leaves the session unchanged.
//
// Returns:
//   - nil if the transition was applied, or one of the errors above
func (s *Session) Apply(cmd command.Command) error {
	switch c := cmd.(type) {
	case command.Hello:
		if s.State == Active {
			return fmt.Errorf("%w: as %q", ErrSessionAlreadyOpen, s.Identity)
		}

		s.State = Active
		s.Identity = c.User
		s.HasIdentity = true
		return nil
	case command.Bye:
		if s.State != Active {
			return ErrSessionNotOpen
		}

		s.State = Closed
		return nil
	case command.PutObj:
		return fmt.Errorf("%w: %s %s", ErrNotImplemented, c.ID, c.Operation)
	default:
		return fmt.Errorf("%w: %T", ErrNotImplemented, cmd)
	}
}
