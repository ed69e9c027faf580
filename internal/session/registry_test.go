package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndOnlineUsers(t *testing.T) {
	r := New()
	r.AddConnection(1)

	require.NoError(t, r.Login(1, "alice", "Alice"))
	assert.True(t, r.IsLoggedIn(1))

	users := r.OnlineUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].UserID)
	assert.Equal(t, "Alice", users[0].Nickname)

	fd, ok := r.FDForUser("alice")
	require.True(t, ok)
	assert.Equal(t, FD(1), fd)
}

func TestDoubleLoginFromDifferentFDRejected(t *testing.T) {
	r := New()
	r.AddConnection(1)
	r.AddConnection(2)

	require.NoError(t, r.Login(1, "alice", "Alice"))
	err := r.Login(2, "alice", "Alice (again)")
	assert.ErrorIs(t, err, ErrAlreadyOnline)

	// The original session is untouched.
	s, err := r.Get(1)
	require.NoError(t, err)
	assert.True(t, s.LoggedIn)
	assert.Equal(t, "Alice", s.Nickname)
}

func TestReLoginFromSameFDAllowed(t *testing.T) {
	r := New()
	r.AddConnection(1)
	require.NoError(t, r.Login(1, "alice", "Alice"))
	assert.NoError(t, r.Login(1, "alice", "Alice"))
}

func TestRemoveConnectionClearsUserMapping(t *testing.T) {
	r := New()
	r.AddConnection(1)
	require.NoError(t, r.Login(1, "alice", "Alice"))

	r.RemoveConnection(1)
	_, ok := r.FDForUser("alice")
	assert.False(t, ok)
	assert.Empty(t, r.OnlineUsers())
}

func TestLogoutKeepsConnectionSlot(t *testing.T) {
	r := New()
	r.AddConnection(1)
	require.NoError(t, r.Login(1, "alice", "Alice"))

	r.Logout(1)
	assert.False(t, r.IsLoggedIn(1))
	_, ok := r.FDForUser("alice")
	assert.False(t, ok)

	s, err := r.Get(1)
	require.NoError(t, err)
	assert.Empty(t, s.UserID)
}

func TestLoginUnknownFD(t *testing.T) {
	r := New()
	err := r.Login(99, "alice", "Alice")
	assert.ErrorIs(t, err, ErrNotFound)
}
