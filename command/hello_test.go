package command

import (
	"testing"

	"github.com/cyberinferno/gamesession/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHello(t *testing.T) {
	t.Run("trims padded id and user", func(t *testing.T) {
		frame := codec.Join(
			codec.PadString("HELO", 8),
			codec.PadString("TestUsername", 32),
			[]byte("Super Message"),
		)

		h, err := DecodeHello(frame)
		require.NoError(t, err)
		assert.Equal(t, "HELO", h.ID)
		assert.Equal(t, "TestUsername", h.User)
		assert.Equal(t, "Super Message", h.Message)
	})

	t.Run("message is not trimmed", func(t *testing.T) {
		frame := codec.Join(codec.PadString("HELO", 8), codec.PadString("u", 32), []byte("hi\x00\x00"))

		h, err := DecodeHello(frame)
		require.NoError(t, err)
		assert.Equal(t, "hi\x00\x00", h.Message)
	})

	t.Run("empty message is allowed", func(t *testing.T) {
		frame := codec.Join(codec.PadString("HELO", 8), codec.PadString("u", 32))

		h, err := DecodeHello(frame)
		require.NoError(t, err)
		assert.Empty(t, h.Message)
	})

	t.Run("short frame is malformed", func(t *testing.T) {
		_, err := DecodeHello(codec.Join(codec.PadString("HELO", 8), []byte("user")))
		assert.ErrorIs(t, err, ErrMalformedMessage)

		_, err = DecodeHello([]byte("HELO"))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("non ascii user fails validation", func(t *testing.T) {
		frame := codec.Join(codec.PadString("HELO", 8), codec.PadString("Gordon Freeman Λ", 32))

		_, err := DecodeHello(frame)
		require.ErrorIs(t, err, ErrValidation)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "user", verr.Field)
		assert.Equal(t, "Gordon Freeman Λ", verr.Value)
	})

	t.Run("non ascii message fails validation", func(t *testing.T) {
		frame := codec.Join(codec.PadString("HELO", 8), codec.PadString("u", 32), []byte("HIDDEN MESSAGEΨ"))

		_, err := DecodeHello(frame)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "message", verr.Field)
	})
}

func TestHello_Validate(t *testing.T) {
	h := NewHello("Gordon Freeman", "svcsdgdrfrg")
	require.NoError(t, h.Validate())

	t.Run("wrong id", func(t *testing.T) {
		bad := h
		bad.ID = "AAA"
		var verr *ValidationError
		require.ErrorAs(t, bad.Validate(), &verr)
		assert.Equal(t, "id", verr.Field)
		assert.Equal(t, "AAA", verr.Value)
	})

	t.Run("non ascii user", func(t *testing.T) {
		bad := h
		bad.User = "Gordon Freeman Λ"
		assert.ErrorIs(t, bad.Validate(), ErrValidation)
	})

	t.Run("non ascii message", func(t *testing.T) {
		bad := h
		bad.Message = "HIDDEN MESSAGEΨ"
		assert.ErrorIs(t, bad.Validate(), ErrValidation)
	})
}

func TestHello_Encode(t *testing.T) {
	t.Run("pads id and user, leaves message unpadded", func(t *testing.T) {
		b, err := NewHello("TestUsername", "Super Message").Encode()
		require.NoError(t, err)

		assert.Equal(t, codec.PadString("HELO", 8), b[0:8])
		assert.Equal(t, codec.PadString("TestUsername", 32), b[8:40])
		assert.Equal(t, []byte("Super Message"), b[40:])
	})

	t.Run("round trip", func(t *testing.T) {
		for _, h := range []Hello{
			NewHello("SuperUser", "SuperMessage"),
			NewHello("", ""),
			NewHello("exactly-thirty-two-bytes-user-id", "with | and & inside"),
		} {
			b, err := h.Encode()
			require.NoError(t, err)

			got, err := DecodeHello(b)
			require.NoError(t, err)
			assert.Equal(t, h, got)
		}
	})

	t.Run("equal commands compare equal", func(t *testing.T) {
		assert.Equal(t, NewHello("SuperUser", "SuperMessage"), NewHello("SuperUser", "SuperMessage"))
		assert.NotEqual(t, NewHello("SuperUser", "a"), NewHello("SuperUser", "b"))
	})
}
