package gameclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cyberinferno/gamesession/command"
	"github.com/cyberinferno/gamesession/gameserver"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, readTimeout time.Duration) *gameserver.Server {
	t.Helper()
	opts := gameserver.DefaultOptions("127.0.0.1:0")
	opts.ReadTimeout = readTimeout

	s := gameserver.NewServer(opts, registry.New(), nil, logger.NewNopLogger())
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "Connecting", Connecting.String())
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Closed", Closed.String())
	assert.Equal(t, "Unknown", ConnectionState(42).String())
}

func TestClient(t *testing.T) {
	srv := startServer(t, 0)
	ctx := context.Background()

	t.Run("send before connect fails", func(t *testing.T) {
		c := NewClient(DefaultConfig(srv.Addr().String()))
		assert.ErrorIs(t, c.Send(command.NewBye()), ErrNotConnected)
	})

	t.Run("replies are delivered in order", func(t *testing.T) {
		c := NewClient(DefaultConfig(srv.Addr().String()))
		var mu sync.Mutex
		var got []command.Reply
		c.OnReply(func(e ReplyEvent) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, e.Reply)
		})

		require.NoError(t, c.Connect(ctx))
		defer c.Close()
		assert.True(t, c.IsConnected())

		require.NoError(t, c.Send(command.NewHello("gordon", "")))
		require.NoError(t, c.SendRaw([]byte("junk")))
		require.NoError(t, c.Send(command.NewBye()))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 3
		}, 2*time.Second, 10*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, command.HelloID, got[0].Detail)
		assert.Equal(t, command.CodeMalformed, got[1].Code)
		assert.Equal(t, command.ByeID, got[2].Detail)
	})

	t.Run("connect twice fails", func(t *testing.T) {
		c := NewClient(DefaultConfig(srv.Addr().String()))
		require.NoError(t, c.Connect(ctx))
		defer c.Close()

		assert.ErrorIs(t, c.Connect(ctx), ErrAlreadyConnected)
	})

	t.Run("close is idempotent and final", func(t *testing.T) {
		c := NewClient(DefaultConfig(srv.Addr().String()))
		var mu sync.Mutex
		var states []ConnectionState
		c.OnState(func(e StateEvent) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, e.State)
		})

		require.NoError(t, c.Connect(ctx))
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		assert.Equal(t, Closed, c.State())
		assert.ErrorIs(t, c.Connect(ctx), ErrClientClosed)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []ConnectionState{Connecting, Connected, Closed}, states)
	})

	t.Run("dial failure reports error", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		c := NewClient(DefaultConfig(addr))
		errs := make(chan error, 1)
		c.OnError(func(e ErrorEvent) { errs <- e.Error })

		assert.Error(t, c.Connect(ctx))
		assert.Equal(t, Disconnected, c.State())
		assert.Error(t, <-errs)
	})
}

func TestClient_ServerDrop(t *testing.T) {
	srv := startServer(t, 50*time.Millisecond)

	c := NewClient(DefaultConfig(srv.Addr().String()))
	lost := make(chan StateEvent, 4)
	c.OnState(func(e StateEvent) {
		if e.State == Disconnected {
			lost <- e
		}
	})

	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	select {
	case e := <-lost:
		assert.Error(t, e.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not drop idle client")
	}

	assert.ErrorIs(t, c.SendRaw([]byte("x")), ErrNotConnected)
}
