package gameclient

import (
	"context"
	"testing"
	"time"

	"github.com/cyberinferno/gamesession/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioNames(t *testing.T) {
	assert.Equal(t, []string{"bad-hello", "idle", "putobj", "silent", "start-stop"}, ScenarioNames())
}

func TestRunScenario(t *testing.T) {
	srv := startServer(t, 0)
	cfg := DefaultConfig(srv.Addr().String())
	log := logger.NewNopLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range []string{"start-stop", "bad-hello", "putobj"} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, RunScenario(ctx, cfg, name, ScenarioOptions{User: name}, log))
		})
	}

	t.Run("idle stops when duration ends", func(t *testing.T) {
		opts := ScenarioOptions{User: "idler", Interval: 20 * time.Millisecond, Duration: 150 * time.Millisecond}
		assert.NoError(t, RunScenario(ctx, cfg, "idle", opts, log))
	})

	t.Run("unknown scenario", func(t *testing.T) {
		err := RunScenario(ctx, cfg, "moonwalk", ScenarioOptions{}, log)
		assert.ErrorIs(t, err, ErrUnknownScenario)
	})

	t.Run("unreachable server", func(t *testing.T) {
		bad := DefaultConfig("127.0.0.1:1")
		assert.Error(t, RunScenario(ctx, bad, "start-stop", ScenarioOptions{User: "x"}, log))
	})
}

func TestRunScenario_Silent(t *testing.T) {
	srv := startServer(t, 50*time.Millisecond)
	cfg := DefaultConfig(srv.Addr().String())

	start := time.Now()
	err := RunScenario(context.Background(), cfg, "silent", ScenarioOptions{User: "ghost", Duration: 5 * time.Second}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunScenarios(t *testing.T) {
	srv := startServer(t, 0)
	cfg := DefaultConfig(srv.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("runs each scenario on its own connection", func(t *testing.T) {
		names := []string{"start-stop", "start-stop", "putobj", "bad-hello"}
		assert.NoError(t, RunScenarios(ctx, cfg, names, ScenarioOptions{User: "bot"}, logger.NewNopLogger()))
	})

	t.Run("first failure is returned", func(t *testing.T) {
		err := RunScenarios(ctx, cfg, []string{"start-stop", "nope"}, ScenarioOptions{User: "bot"}, logger.NewNopLogger())
		assert.ErrorIs(t, err, ErrUnknownScenario)
	})
}
