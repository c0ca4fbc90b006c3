package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalmanolah/nite/internal/envelope"
)

func TestRoundTripPreservesIdentityAndPayload(t *testing.T) {
	resolver := NewResolver()
	resolver.MarkKnown("demo.Ping")
	c := New(resolver)

	env := envelope.New("demo.Ping", map[string]interface{}{
		"n":     int64(1),
		"label": "hello",
	})

	body, err := c.Encode(env)
	require.NoError(t, err)

	decoded, err := c.Decode(body)
	require.NoError(t, err)

	assert.Equal(t, env.UUID, decoded.UUID)
	assert.Equal(t, env.Version, decoded.Version)
	assert.WithinDuration(t, env.Timestamp, decoded.Timestamp, 0)
	assert.Equal(t, env.EventName, decoded.EventName)
	assert.Equal(t, env.Payload["n"], decoded.Payload["n"])
	assert.Equal(t, env.Payload["label"], decoded.Payload["label"])

	// Source and ReplyToUUID never travel on the wire.
	assert.Empty(t, decoded.Source)
	assert.Empty(t, decoded.ReplyToUUID)
}

func TestDecodeUnresolvedEventFails(t *testing.T) {
	c := New(NewResolver())
	env := envelope.New("demo.Unknown", nil)

	body, err := c.Encode(env)
	require.NoError(t, err)

	_, err = c.Decode(body)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedEvent))
}

func TestDecodeMalformedBodyFails(t *testing.T) {
	c := New(NewResolver())
	_, err := c.Decode([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBody))
}

func TestDecodePayloadGivesTypedAccess(t *testing.T) {
	env := envelope.New("demo.Order", map[string]interface{}{
		"item":  "widget",
		"count": int64(3),
	})

	var target struct {
		Item  string `msgpack:"item"`
		Count int64  `msgpack:"count"`
	}
	require.NoError(t, DecodePayload(env, &target))
	assert.Equal(t, "widget", target.Item)
	assert.Equal(t, int64(3), target.Count)
}
