// Package tcpserver runs a TCP accept loop and hands each connection to a
// Session running in its own goroutine.
package tcpserver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/safemap"
)

// NewSessionFunc creates the Session for an accepted connection. It receives
// the connection ID assigned by the server and the accepted net.Conn.
type NewSessionFunc func(id uint32, conn net.Conn) Session

// Server accepts TCP connections and delegates each one to a Session created
// by NewSession. Live sessions are kept in Sessions by connection ID and are
// removed when their Handle returns.
type Server struct {
	Logger     logger.Logger
	Name       string
	Addr       string
	Listener   net.Listener
	Sessions   *safemap.SafeMap[uint32, Session]
	Running    atomic.Bool
	NewSession NewSessionFunc

	lastID     atomic.Uint32
	acceptDone chan struct{}
	wg         sync.WaitGroup
}

// New creates a stopped Server.
//
// Parameters:
//   - name: Server name used in log messages
//   - addr: Listen address, e.g. ":5555" or "127.0.0.1:0"
//   - log: Logger for lifecycle and accept errors
//   - newSession: Factory called once per accepted connection
//
// Returns:
//   - A new Server; call Start to begin accepting
func New(name, addr string, log logger.Logger, newSession NewSessionFunc) *Server {
	return &Server{
		Logger:     log,
		Name:       name,
		Addr:       addr,
		Sessions:   safemap.NewSafeMap[uint32, Session](),
		NewSession: newSession,
	}
}

// Start binds Addr and runs AcceptLoop in a goroutine.
//
// Returns:
//   - An error if the server is already running or if listening on Addr fails
func (s *Server) Start() error {
	if s.Running.Load() {
		s.Logger.Error("server already running", logger.Field{Key: "server", Value: s.Name})
		return fmt.Errorf("server %s already running", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.Err(err))
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.Listener = ln
	s.acceptDone = make(chan struct{})
	s.Running.Store(true)

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})
	go s.AcceptLoop()

	return nil
}

// Stop closes the listener, closes every live session and waits for their
// Handle calls to return. Safe to call when the server is not running.
func (s *Server) Stop() {
	if !s.Running.CompareAndSwap(true, false) {
		s.Logger.Info(fmt.Sprintf("%s server not running", s.Name))
		return
	}

	if s.Listener != nil {
		_ = s.Listener.Close()
	}
	<-s.acceptDone

	s.Sessions.Range(func(id uint32, session Session) bool {
		if err := session.Close(); err != nil {
			s.Logger.Warn("session close failed", logger.Field{Key: "conn_id", Value: id}, logger.Err(err))
		}

		return true
	})

	s.wg.Wait()
	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name))
}

// ListenAddr returns the bound listener address, which differs from Addr when
// Addr used port 0. It returns nil before Start.
func (s *Server) ListenAddr() net.Addr {
	if s.Listener == nil {
		return nil
	}

	return s.Listener.Addr()
}

// AcceptLoop accepts connections until the listener is closed. Each
// connection gets the next connection ID, a Session from NewSession, and a
// goroutine running Handle. The session is dropped from Sessions when Handle
// returns.
func (s *Server) AcceptLoop() {
	defer close(s.acceptDone)

	for s.Running.Load() {
		conn, err := s.Listener.Accept()
		if err != nil {
			if !s.Running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Err(err))
			continue
		}

		id := s.lastID.Add(1)
		session := s.NewSession(id, conn)
		s.Sessions.Store(id, session)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session.Handle()

			if _, ok := s.Sessions.LoadAndDelete(id); ok {
				s.Logger.Debug("session removed", logger.Field{Key: "conn_id", Value: id})
			}
		}()
	}
}
