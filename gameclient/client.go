// Package gameclient is an event-driven client for the game session
// protocol. It reports connection state changes, server replies and errors
// through registered handlers, and ships the traffic scenarios used to
// exercise a running server.
package gameclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/gamesession/command"
	"github.com/cyberinferno/gamesession/framer"
)

var (
	ErrClientClosed     = errors.New("gameclient: client is closed")
	ErrNotConnected     = errors.New("gameclient: not connected")
	ErrAlreadyConnected = errors.New("gameclient: already connected or connecting")
)

// ConnectionState represents the current state of the TCP connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Dial in progress
	Connected                           // Connected and reading replies
	Closed                              // Client closed; it cannot be reused
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StateEvent is emitted when the connection state changes.
type StateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The server address
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the change was caused by an error
}

// ReplyEvent is emitted for every reply frame received from the server.
type ReplyEvent struct {
	Reply     command.Reply
	Timestamp time.Time
}

// ErrorEvent is emitted when a read, write, dial or decode error occurs.
type ErrorEvent struct {
	Error     error
	Timestamp time.Time
}

// StateHandler is called when the connection state changes.
type StateHandler func(event StateEvent)

// ReplyHandler is called for each reply, in the order the server sent them.
type ReplyHandler func(event ReplyEvent)

// ErrorHandler is called when an error occurs.
type ErrorHandler func(event ErrorEvent)

// Config holds client settings.
type Config struct {
	// Address is the "host:port" of the server.
	Address string
	// Delimiter terminates frames in both directions.
	Delimiter byte
	// MaxFrameSize bounds one reply frame; 0 selects framer.DefaultMaxFrameSize.
	MaxFrameSize int
	// ConnectionTimeout is the max duration for establishing the connection.
	ConnectionTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// ReadTimeout is the max wait for the next reply; 0 means no timeout.
	ReadTimeout time.Duration
}

// DefaultConfig returns a Config for address with the '|' delimiter.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with ConnectionTimeout 10s, WriteTimeout 10s and no ReadTimeout
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		Delimiter:         framer.DelimiterCommand,
		MaxFrameSize:      framer.DefaultMaxFrameSize,
		ConnectionTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client is a game session client. Register handlers, then call Connect.
// Handlers run on the client's read goroutine, so replies are delivered in
// order; a handler must not block for long or call Close.
type Client struct {
	config Config
	conn   net.Conn
	state  ConnectionState

	onState StateHandler
	onReply ReplyHandler
	onError ErrorHandler

	mu      sync.RWMutex
	writeMu sync.Mutex
	wg      sync.WaitGroup
	closed  bool
}

// NewClient creates a Disconnected client.
func NewClient(config Config) *Client {
	if config.Delimiter == 0 {
		config.Delimiter = framer.DelimiterCommand
	}

	return &Client{config: config, state: Disconnected}
}

// OnState registers the handler for connection state changes, replacing any
// previous one. Pass nil to clear it.
func (c *Client) OnState(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnReply registers the handler for server replies, replacing any previous
// one. Pass nil to clear it.
func (c *Client) OnReply(handler ReplyHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReply = handler
}

// OnError registers the handler for errors, replacing any previous one. Pass
// nil to clear it.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect dials the server and starts reading replies.
//
// Parameters:
//   - ctx: Cancels the dial; it does not bound the connection's lifetime
//
// Returns:
//   - ErrClientClosed, ErrAlreadyConnected or the dial error
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return fmt.Errorf("connect %s: %w", c.config.Address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// Close closes the connection and waits for the read goroutine to exit.
// Calling Close more than once is safe.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.setState(Closed, nil)

	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// Send encodes cmd and writes it followed by the delimiter.
func (c *Client) Send(cmd command.Command) error {
	frame, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Identifier(), err)
	}

	return c.SendRaw(frame)
}

// SendRaw writes frame followed by the delimiter without interpreting it.
// It is how scenarios send deliberately malformed traffic.
//
// Returns:
//   - ErrNotConnected, or the write error
func (c *Client) SendRaw(frame []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, c.config.Delimiter)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}

	if _, err := conn.Write(buf); err != nil {
		c.emitError(err)
		return err
	}

	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is Connected.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	frames := framer.NewReader(conn, c.config.Delimiter, c.config.MaxFrameSize)
	for {
		if c.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
				c.lost(err)
				return
			}
		}

		frame, err := frames.ReadFrame()
		if err != nil {
			c.lost(err)
			return
		}

		reply, err := command.DecodeReply(frame)
		if err != nil {
			c.emitError(err)
			continue
		}

		c.emitReply(reply)
	}
}

// lost records that the server side went away. Errors caused by Close are
// not reported.
func (c *Client) lost(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.emitError(err)
	c.setState(Disconnected, err)
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(StateEvent{State: state, Address: c.config.Address, Timestamp: time.Now(), Error: err})
	}
}

func (c *Client) emitReply(reply command.Reply) {
	c.mu.RLock()
	handler := c.onReply
	c.mu.RUnlock()

	if handler != nil {
		handler(ReplyEvent{Reply: reply, Timestamp: time.Now()})
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		handler(ErrorEvent{Error: err, Timestamp: time.Now()})
	}
}
