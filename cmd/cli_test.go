package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cyberinferno/gamesession/gameserver"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestConfigInit(t *testing.T) {
	ctx := context.Background()

	t.Run("prints defaults", func(t *testing.T) {
		stdout, _, err := executeCLI(t, ctx, "config", "init")
		require.NoError(t, err)
		assert.Contains(t, stdout, "[server]")
		assert.Contains(t, stdout, "[directory]")
	})

	t.Run("writes file once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gamesession.toml")

		stdout, _, err := executeCLI(t, ctx, "config", "init", "-o", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Wrote "+path)

		_, _, err = executeCLI(t, ctx, "config", "init", "-o", path)
		assert.Error(t, err)

		_, _, err = executeCLI(t, ctx, "config", "init", "-o", path, "--force")
		assert.NoError(t, err)
	})
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamesession.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \":7000\"\n[directory]\nredis_password = \"hunter2\"\n"), 0o600))
	t.Setenv("GAMESESSION_LOG_LEVEL", "warn")

	stdout, _, err := executeCLI(t, context.Background(), "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, ":7000")
	assert.Contains(t, stdout, "warn")
	assert.NotContains(t, stdout, "hunter2")
}

func TestClientCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a scenario", func(t *testing.T) {
		_, _, err := executeCLI(t, ctx, "client")
		assert.Error(t, err)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		_, _, err := executeCLI(t, ctx, "client", "moonwalk", "--addr", "127.0.0.1:1")
		assert.Error(t, err)
	})

	t.Run("bad delimiter", func(t *testing.T) {
		_, _, err := executeCLI(t, ctx, "client", "start-stop", "--delimiter", "||")
		assert.Error(t, err)
	})

	t.Run("runs scenarios against a server", func(t *testing.T) {
		srv := gameserver.NewServer(gameserver.DefaultOptions("127.0.0.1:0"), registry.New(), nil, logger.NewNopLogger())
		require.NoError(t, srv.Start())
		defer srv.Stop()

		stdout, _, err := executeCLI(t, ctx, "client", "start-stop", "putobj", "--addr", srv.Addr().String())
		require.NoError(t, err)
		assert.Contains(t, stdout, "2 scenario(s) passed")
	})
}

func TestServeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamesession.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \"127.0.0.1:0\"\n"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	stdout, _, err := executeCLI(t, ctx, "--config", path, "serve")
	require.NoError(t, err)
	assert.Contains(t, stdout, "server started")
	assert.Contains(t, stdout, "shutting down")
}

func TestServeCommand_RedisDirectory(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "gamesession.toml")
	cfg := fmt.Sprintf("[server]\naddr = \"127.0.0.1:0\"\n\n[directory]\nbackend = \"redis\"\nredis_addr = %q\n", mr.Addr())
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	t.Run("serves until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		stdout, _, err := executeCLI(t, ctx, "--config", path, "serve")
		require.NoError(t, err)
		assert.Contains(t, stdout, "server started")
		assert.Contains(t, stdout, "active_sessions")
	})

	t.Run("unreachable redis fails startup", func(t *testing.T) {
		mr.Close()

		_, _, err := executeCLI(t, context.Background(), "--config", path, "serve")
		assert.ErrorContains(t, err, "redis ping")
	})
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamesession.toml")
	require.NoError(t, os.WriteFile(path, []byte("[directory]\nbackend = \"etcd\"\n"), 0o600))

	_, _, err := executeCLI(t, context.Background(), "--config", path, "serve")
	assert.Error(t, err)
}
