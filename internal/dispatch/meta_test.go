package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	meta := map[string]any{"user_id": "alice", "count": 3}
	v, ok := getString(meta, "user_id")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	_, ok = getString(meta, "count")
	assert.False(t, ok)

	_, ok = getString(meta, "missing")
	assert.False(t, ok)
}

func TestGetInt64FromJSONFloat(t *testing.T) {
	meta := map[string]any{"offset": float64(1024)}
	v, ok := getInt64(meta, "offset")
	assert.True(t, ok)
	assert.EqualValues(t, 1024, v)
}

func TestValidators(t *testing.T) {
	assert.True(t, validIdentifier("alice"))
	assert.False(t, validIdentifier(""))
	assert.False(t, validIdentifier(string(make([]byte, 65))))

	assert.True(t, validSHA256(string(make([]byte, 64))))
	assert.False(t, validSHA256(string(make([]byte, 63))))

	assert.True(t, validConversationType("private"))
	assert.True(t, validConversationType("group"))
	assert.False(t, validConversationType("channel"))
}

func TestEnvelopeMarshal(t *testing.T) {
	e := ok(map[string]any{"group_id": "g1"})
	assert.Equal(t, "ok", e["status"])

	e2 := errEnvelope(CodeNotLoggedIn, "not logged in")
	b := e2.marshal()
	assert.Contains(t, string(b), CodeNotLoggedIn)
}
