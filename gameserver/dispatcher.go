// Package gameserver runs the session protocol over TCP: it frames each
// connection's byte stream, decodes commands, drives the per-connection
// session state machine and keeps the shared registry up to date.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberinferno/gamesession/command"
	"github.com/cyberinferno/gamesession/directory"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/cyberinferno/gamesession/safeset"
	"github.com/cyberinferno/gamesession/session"
)

var ErrIdentityInUse = errors.New("gameserver: identity in use by another connection")

// Dispatcher applies frames to sessions. One Dispatcher is shared by every
// connection; it holds no per-connection state.
//
// An identity is claimed on HELLO in two places: a process-local set, which
// makes concurrent HELLOs on this server race-free, and the directory, which
// with a shared Redis backend makes claims visible to other servers.
type Dispatcher struct {
	reg    *registry.Registry
	dir    *directory.Directory
	claims *safeset.SafeSet[string]
	log    logger.Logger
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher.
//
// Parameters:
//   - reg: Registry receiving session snapshots
//   - dir: Directory consulted on HELLO and kept current on every frame; may be nil
//   - log: Logger for registry and directory bookkeeping
//
// Returns:
//   - A new Dispatcher
func NewDispatcher(reg *registry.Registry, dir *directory.Directory, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		reg:    reg,
		dir:    dir,
		claims: safeset.NewSafeSet[string](),
		log:    log,
		now:    time.Now,
	}
}

// Connect creates the session for a newly accepted connection and inserts
// it into the registry.
func (d *Dispatcher) Connect(remoteAddr string) session.Session {
	s := session.New(remoteAddr, d.now())
	d.reg.Insert(s)
	return s
}

// HandleFrame handles one frame for the connection owning s. The message is
// counted before it is decoded, so frames that fail are counted too. A
// rejected frame leaves the state machine untouched and never ends the
// connection; the returned error is for logging.
//
// Parameters:
//   - ctx: Context for directory calls
//   - s: The connection's live session, updated in place
//   - frame: One delimiter-free frame
//
// Returns:
//   - The reply to send to the client
//   - The decode, state or identity error, or nil
func (d *Dispatcher) HandleFrame(ctx context.Context, s *session.Session, frame []byte) (command.Reply, error) {
	s.Touch(d.now())
	defer func() { d.store(ctx, *s) }()

	cmd, err := command.Decode(frame)
	if err != nil {
		return replyFor(err), err
	}

	if err := d.apply(ctx, s, cmd); err != nil {
		return replyFor(err), err
	}

	return command.Ack(cmd.Identifier()), nil
}

// Disconnect removes the connection's registry entry and releases its
// identity claim. It is called once, after the read loop ends.
func (d *Dispatcher) Disconnect(ctx context.Context, s session.Session) {
	if identity, ok := s.IdentityOf(); ok && s.State == session.Active {
		d.claims.Remove(identity)
	}

	if !d.reg.RemoveHandle(s.Handle) {
		d.log.Warn("session missing from registry", logger.Field{Key: "session", Value: s.Handle.String()})
	}

	if d.dir == nil {
		return
	}

	if err := d.dir.Release(ctx, s); err != nil {
		d.log.Warn("directory release failed", logger.Field{Key: "identity", Value: s.Identity}, logger.Err(err))
	}
}

func (d *Dispatcher) apply(ctx context.Context, s *session.Session, cmd command.Command) error {
	switch c := cmd.(type) {
	case command.Hello:
		if s.State == session.Active {
			return s.Apply(cmd)
		}

		if !d.claims.TryAdd(c.User) {
			return fmt.Errorf("%w: %q", ErrIdentityInUse, c.User)
		}

		if err := d.checkHolder(ctx, *s, c.User); err != nil {
			d.claims.Remove(c.User)
			return err
		}

		if err := s.Apply(cmd); err != nil {
			d.claims.Remove(c.User)
			return err
		}

		return nil
	case command.Bye:
		if err := s.Apply(cmd); err != nil {
			return err
		}

		d.claims.Remove(s.Identity)
		return nil
	default:
		return s.Apply(cmd)
	}
}

// checkHolder refuses identity if the directory shows it held by another
// Active session, which is how claims made on other servers are seen. A
// directory that cannot be reached does not block the login; the local
// claim still applies.
func (d *Dispatcher) checkHolder(ctx context.Context, s session.Session, identity string) error {
	if d.dir == nil {
		return nil
	}

	held, err := d.dir.Lookup(ctx, identity)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return nil
	case err != nil:
		d.log.Warn("directory lookup failed", logger.Field{Key: "identity", Value: identity}, logger.Err(err))
		return nil
	case held.State == session.Active && held.Handle != s.Handle:
		return fmt.Errorf("%w: %q", ErrIdentityInUse, identity)
	default:
		return nil
	}
}

// store pushes a copy of s into the registry entry with the same handle and
// publishes it to the directory. Only the connection's own entry is ever
// written; a session whose entry is gone is not stored anywhere.
func (d *Dispatcher) store(ctx context.Context, s session.Session) {
	if !d.reg.Bind(s) {
		d.log.Debug("session not in registry", logger.Field{Key: "session", Value: s.Handle.String()})
		return
	}

	if d.dir == nil {
		return
	}

	if err := d.dir.Publish(ctx, s); err != nil {
		d.log.Warn("directory publish failed", logger.Field{Key: "identity", Value: s.Identity}, logger.Err(err))
	}
}
