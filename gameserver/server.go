package gameserver

import (
	"context"
	"net"
	"time"

	"github.com/cyberinferno/gamesession/directory"
	"github.com/cyberinferno/gamesession/framer"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/cyberinferno/gamesession/session"
	"github.com/cyberinferno/gamesession/tcpserver"
)

// Options controls the protocol side of the server.
type Options struct {
	// Name appears in lifecycle log messages.
	Name string
	// Addr is the listen address, e.g. ":5555".
	Addr string
	// Delimiter terminates every frame in both directions; 0 selects framer.DelimiterCommand.
	Delimiter byte
	// MaxFrameSize bounds one inbound frame; 0 selects framer.DefaultMaxFrameSize.
	MaxFrameSize int
	// ReadTimeout drops a client that sends nothing for this long; 0 disables it.
	ReadTimeout time.Duration
	// Replies enables ACK/NAK replies after every frame.
	Replies bool
}

// DefaultOptions returns Options listening on addr with the '|' delimiter
// and replies enabled.
func DefaultOptions(addr string) Options {
	return Options{
		Name:         "gamesession",
		Addr:         addr,
		Delimiter:    framer.DelimiterCommand,
		MaxFrameSize: framer.DefaultMaxFrameSize,
		Replies:      true,
	}
}

// Server is a game session server: a TCP accept loop whose connections run
// the session protocol against one shared registry.
type Server struct {
	opts       Options
	log        logger.Logger
	registry   *registry.Registry
	dispatcher *Dispatcher
	tcp        *tcpserver.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a stopped Server.
//
// Parameters:
//   - opts: Listen address and protocol settings
//   - reg: The registry shared by every connection
//   - dir: Directory shared with other servers for identity claims; may be nil
//   - log: Base logger; connections derive their own from it
//
// Returns:
//   - A new Server; call Start to accept connections
func NewServer(opts Options, reg *registry.Registry, dir *directory.Directory, log logger.Logger) *Server {
	if opts.Delimiter == 0 {
		opts.Delimiter = framer.DelimiterCommand
	}

	s := &Server{
		opts:       opts,
		log:        log,
		registry:   reg,
		dispatcher: NewDispatcher(reg, dir, log),
	}

	s.tcp = tcpserver.New(opts.Name, opts.Addr, log, func(id uint32, nc net.Conn) tcpserver.Session {
		return newConn(s.ctx, id, nc, s.dispatcher, s.opts, s.log)
	})

	return s
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if err := s.tcp.Start(); err != nil {
		s.cancel()
		return err
	}

	return nil
}

// Stop closes the listener and every connection, and waits for their
// sessions to be removed from the registry.
func (s *Server) Stop() {
	s.tcp.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.tcp.ListenAddr()
}

// Registry returns the shared session registry.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Connections returns the number of live connections.
func (s *Server) Connections() int {
	return s.tcp.Sessions.Len()
}

// ActiveSessions returns the number of registry entries in the Active
// state.
func (s *Server) ActiveSessions() int {
	n := 0
	for _, sess := range s.registry.Snapshot() {
		if sess.State == session.Active {
			n++
		}
	}

	return n
}
