package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &m))
	return m
}

func TestZerologLogger(t *testing.T) {
	t.Run("adds service and fields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewZerologLogger(zerolog.New(&buf), "gamesession", zerolog.DebugLevel)

		l.Info("session opened", Field{Key: "user", Value: "gordon"})

		m := decodeLine(t, buf.Bytes())
		assert.Equal(t, "gamesession", m["service"])
		assert.Equal(t, "gordon", m["user"])
		assert.Equal(t, "info", m["level"])
		assert.Equal(t, "session opened", m["message"])
		assert.Contains(t, m, "time")
	})

	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewZerologLogger(zerolog.New(&buf), "gamesession", zerolog.WarnLevel)

		l.Debug("dropped")
		l.Info("dropped")
		assert.Zero(t, buf.Len())

		l.Error("kept", Err(errors.New("boom")))
		m := decodeLine(t, buf.Bytes())
		assert.Equal(t, "boom", m["error"])
	})

	t.Run("with attaches fields to derived logger only", func(t *testing.T) {
		var buf bytes.Buffer
		base := NewZerologLogger(zerolog.New(&buf), "gamesession", zerolog.InfoLevel)
		conn := base.With(Field{Key: "conn_id", Value: 7})

		conn.Info("frame")
		m := decodeLine(t, buf.Bytes())
		assert.EqualValues(t, 7, m["conn_id"])

		buf.Reset()
		base.Info("frame")
		m = decodeLine(t, buf.Bytes())
		assert.NotContains(t, m, "conn_id")
	})

	t.Run("close without file is a no-op", func(t *testing.T) {
		l := NewZerologLogger(zerolog.New(&bytes.Buffer{}), "s", zerolog.InfoLevel)
		assert.NoError(t, l.Close())
		assert.NoError(t, l.With().Close())
	})
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("ignored", Err(errors.New("x")))
	assert.NoError(t, l.Close())
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "gamesession", zerolog.InfoLevel)
	l.Info("listening", Field{Key: "addr", Value: ":5555"})
	assert.Contains(t, buf.String(), "listening")
	assert.Contains(t, buf.String(), ":5555")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDailyFileWriter(t *testing.T) {
	t.Run("writes to dated file", func(t *testing.T) {
		dir := t.TempDir()
		w, err := NewDailyFileWriter("svc", dir)
		require.NoError(t, err)
		defer w.Close()

		_, err = w.Write([]byte("line\n"))
		require.NoError(t, err)

		want := filepath.Join(dir, "svc_"+time.Now().Format(dateLayout)+".log")
		assert.Equal(t, want, w.CurrentLogFile())

		data, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, "line\n", string(data))
	})

	t.Run("rotates when the date changes", func(t *testing.T) {
		dir := t.TempDir()
		w, err := NewDailyFileWriter("svc", dir)
		require.NoError(t, err)
		defer w.Close()

		w.now = func() time.Time { return time.Date(2030, 1, 2, 0, 0, 1, 0, time.Local) }
		_, err = w.Write([]byte("tomorrow\n"))
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "svc_2030-01-02.log"), w.CurrentLogFile())
	})

	t.Run("write after close fails", func(t *testing.T) {
		w, err := NewDailyFileWriter("svc", t.TempDir())
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		_, err = w.Write([]byte("x"))
		assert.ErrorIs(t, err, errWriterClosed)
		assert.Empty(t, w.CurrentLogFile())
	})

	t.Run("file logger creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "logs")
		l, err := NewZerologFileLogger("svc", dir, zerolog.InfoLevel)
		require.NoError(t, err)
		l.Info("hello")
		require.NoError(t, l.Close())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
