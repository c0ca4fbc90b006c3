package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesIdentity(t *testing.T) {
	env := New("demo.Ping", map[string]interface{}{"n": 1})

	require.Len(t, env.UUID, 32)
	assert.NotContains(t, env.UUID, "-")
	assert.Equal(t, uint(1), env.Version)
	assert.Equal(t, "demo.Ping", env.EventName)
	assert.Empty(t, env.Source)
	assert.False(t, env.IsReply())
	assert.False(t, env.Timestamp.IsZero())
}

func TestNewUUIDsAreUnique(t *testing.T) {
	a := New("demo.Ping", nil)
	b := New("demo.Ping", nil)
	assert.NotEqual(t, a.UUID, b.UUID)
}

func TestNewReplyCorrelatesToOriginal(t *testing.T) {
	req := New("demo.Req", map[string]interface{}{"x": 1})
	res := NewReply(req, "demo.Res", map[string]interface{}{"ok": true})

	assert.Equal(t, req.UUID, res.ReplyToUUID)
	assert.True(t, res.IsReply())
	assert.False(t, req.IsReply())
}

func TestCloneIsIndependent(t *testing.T) {
	env := New("demo.Ping", map[string]interface{}{"n": 1})
	clone := env.Clone()
	clone.Payload["n"] = 2
	clone.EventName = "demo.Other"

	assert.Equal(t, 1, env.Payload["n"])
	assert.Equal(t, "demo.Ping", env.EventName)
	assert.Equal(t, 2, clone.Payload["n"])
}
