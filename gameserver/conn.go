package gameserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/gamesession/framer"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/perfmonitor"
	"github.com/cyberinferno/gamesession/session"
	"github.com/eapache/queue"
)

const writeTimeout = 10 * time.Second

// Conn is the tcpserver.Session for one game client. Handle owns the live
// session; nothing else reads or writes it while Handle runs.
type Conn struct {
	id         uint32
	conn       net.Conn
	frames     *framer.Reader
	dispatcher *Dispatcher
	opts       Options
	log        logger.Logger
	ctx        context.Context

	sess session.Session
	perf *perfmonitor.PerformanceMonitor

	// outbox holds encoded frames until the next flush; guarded by writeMu.
	writeMu sync.Mutex
	outbox  *queue.Queue

	closeOnce sync.Once
	closeErr  error
}

func newConn(ctx context.Context, id uint32, nc net.Conn, d *Dispatcher, opts Options, log logger.Logger) *Conn {
	s := d.Connect(nc.RemoteAddr().String())

	return &Conn{
		id:         id,
		conn:       nc,
		frames:     framer.NewReader(nc, opts.Delimiter, opts.MaxFrameSize),
		dispatcher: d,
		opts:       opts,
		log: log.With(
			logger.Field{Key: "conn_id", Value: id},
			logger.Field{Key: "session", Value: s.Handle.String()},
			logger.Field{Key: "remote", Value: s.RemoteAddr},
		),
		ctx:    ctx,
		sess:   s,
		perf:   perfmonitor.NewPerformanceMonitor(),
		outbox: queue.New(),
	}
}

// ID implements tcpserver.Session.
func (c *Conn) ID() uint32 {
	return c.id
}

// Handle implements tcpserver.Session. It reads frames until the client
// disconnects, the read times out or the connection is closed, handling each
// frame before reading the next.
func (c *Conn) Handle() {
	defer c.finish()
	c.log.Info("client connected")

	for {
		if c.opts.ReadTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
				c.log.Warn("set read deadline failed", logger.Err(err))
				return
			}
		}

		frame, err := c.frames.ReadFrame()
		if err != nil {
			c.logReadError(err)
			return
		}

		c.handleFrame(frame)

		// Replies to pipelined frames go out together once the buffered
		// input is drained.
		if c.frames.HasFrame() {
			continue
		}

		if err := c.flush(); err != nil {
			c.log.Warn("reply not sent", logger.Err(err))
			return
		}
	}
}

// Close implements tcpserver.Session. It unblocks Handle; cleanup happens
// when Handle returns.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})

	return c.closeErr
}

// Send implements tcpserver.Session. data is queued and written, followed by
// the delimiter, together with any reply still waiting in the outbox. A
// failed write closes the connection.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.enqueueLocked(data)
	return c.flushLocked()
}

func (c *Conn) handleFrame(frame []byte) {
	c.perf.Start()
	reply, err := c.dispatcher.HandleFrame(c.ctx, &c.sess, frame)
	c.perf.Stop()

	fields := []logger.Field{
		{Key: "state", Value: c.sess.State.String()},
		{Key: "messages", Value: c.sess.MessageCount},
		{Key: "elapsed_ms", Value: c.perf.ElapsedMilliseconds()},
	}
	if err != nil {
		c.log.Warn("frame rejected", append(fields, logger.Field{Key: "code", Value: reply.Code}, logger.Err(err))...)
	} else {
		c.log.Debug("frame handled", append(fields, logger.Field{Key: "identity", Value: c.sess.Identity})...)
	}

	if !c.opts.Replies {
		return
	}

	reply.Detail = strings.Map(func(r rune) rune {
		if r == rune(c.opts.Delimiter) {
			return -1
		}
		return r
	}, reply.Detail)

	c.writeMu.Lock()
	c.enqueueLocked(reply.Encode())
	c.writeMu.Unlock()
}

func (c *Conn) flush() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.flushLocked()
}

func (c *Conn) enqueueLocked(data []byte) {
	framed := make([]byte, 0, len(data)+1)
	framed = append(framed, data...)
	framed = append(framed, c.opts.Delimiter)
	c.outbox.Add(framed)
}

// flushLocked writes every queued frame in one vectored write and empties
// the outbox. A failed write may have put part of a frame on the wire, after
// which the stream cannot be framed, so the connection is closed and nothing
// is retried.
func (c *Conn) flushLocked() error {
	if c.outbox.Length() == 0 {
		return nil
	}

	bufs := make(net.Buffers, 0, c.outbox.Length())
	for c.outbox.Length() > 0 {
		bufs = append(bufs, c.outbox.Remove().([]byte))
	}

	err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err == nil {
		_, err = bufs.WriteTo(c.conn)
	}

	if err != nil {
		_ = c.Close()
		return err
	}

	return nil
}

func (c *Conn) logReadError(err error) {
	var netErr net.Error

	switch {
	case errors.Is(err, io.EOF):
		c.log.Info("client disconnected")
	case errors.Is(err, io.ErrUnexpectedEOF):
		c.log.Info("client disconnected mid-frame")
	case errors.Is(err, net.ErrClosed):
		c.log.Debug("connection closed by server")
	case errors.Is(err, framer.ErrFrameTooLarge):
		c.log.Warn("dropping client", logger.Err(err))
	case errors.As(err, &netErr) && netErr.Timeout():
		c.log.Info("client timed out", logger.Field{Key: "timeout", Value: c.opts.ReadTimeout.String()})
	default:
		c.log.Warn("read failed", logger.Err(err))
	}
}

func (c *Conn) finish() {
	_ = c.Close()
	c.dispatcher.Disconnect(context.WithoutCancel(c.ctx), c.sess)
	c.log.Info("session ended",
		logger.Field{Key: "identity", Value: c.sess.Identity},
		logger.Field{Key: "messages", Value: c.sess.MessageCount},
		logger.Field{Key: "duration", Value: time.Since(c.sess.ConnectedAt).String()},
	)
}
