// Package session maintains the in-memory connection table: fd to
// session, and for logged-in users, user_id to fd. Grounded on the
// original single-threaded SessionManager, with a mutex standing in
// for the reactor thread that used to make locking unnecessary —
// goroutines replace that single owner (SPEC_FULL.md §4.4).
package session

import (
	"errors"
	"sync"
)

// ErrAlreadyOnline is returned by Login when the user is already
// mapped to a different connection — the single-session invariant is
// enforced by rejecting the new session, not evicting the old one.
var ErrAlreadyOnline = errors.New("session: user already online")

// ErrNotFound is returned when an fd has no session slot.
var ErrNotFound = errors.New("session: not found")

// FD identifies a connection. It has no relation to an OS file
// descriptor in this implementation; it is simply a per-connection
// sequence number assigned by the listener.
type FD uint64

// Session is the per-connection state: who, if anyone, is logged in
// on this connection.
type Session struct {
	FD       FD
	LoggedIn bool
	UserID   string
	Nickname string
}

// OnlineUser is a roster entry for UserListUpdate/AuthOk fanout.
type OnlineUser struct {
	UserID   string
	Nickname string
}

// Registry is the fd<->user mapping described in spec.md §4.4.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[FD]*Session
	userToFD  map[string]FD
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[FD]*Session),
		userToFD: make(map[string]FD),
	}
}

// AddConnection creates a fresh, not-logged-in session slot for fd.
func (r *Registry) AddConnection(fd FD) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[fd] = &Session{FD: fd}
}

// RemoveConnection drops fd's session slot and, if it was logged in,
// its user_id mapping.
func (r *Registry) RemoveConnection(fd FD) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(fd)
}

func (r *Registry) removeLocked(fd FD) {
	s, ok := r.sessions[fd]
	if !ok {
		return
	}
	if s.LoggedIn && s.UserID != "" {
		delete(r.userToFD, s.UserID)
	}
	delete(r.sessions, fd)
}

// Login binds fd to user_id/nickname. It fails with ErrAlreadyOnline
// if the user is already mapped to a different fd (by design — the
// server does not silently steal the prior session).
func (r *Registry) Login(fd FD, userID, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[fd]
	if !ok {
		return ErrNotFound
	}
	if existing, ok := r.userToFD[userID]; ok && existing != fd {
		return ErrAlreadyOnline
	}
	s.LoggedIn = true
	s.UserID = userID
	s.Nickname = nickname
	r.userToFD[userID] = fd
	return nil
}

// Logout clears fd's logged-in state without removing its slot.
func (r *Registry) Logout(fd FD) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[fd]
	if !ok {
		return
	}
	if s.LoggedIn && s.UserID != "" {
		delete(r.userToFD, s.UserID)
	}
	s.LoggedIn = false
	s.UserID = ""
	s.Nickname = ""
}

// IsLoggedIn reports whether fd currently holds a logged-in session.
func (r *Registry) IsLoggedIn(fd FD) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[fd]
	return ok && s.LoggedIn
}

// Get returns a copy of fd's session, or ErrNotFound.
func (r *Registry) Get(fd FD) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[fd]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

// FDForUser returns the fd a logged-in user is currently connected on.
func (r *Registry) FDForUser(userID string) (FD, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fd, ok := r.userToFD[userID]
	return fd, ok
}

// OnlineUsers returns a snapshot of every currently logged-in user,
// for roster broadcasts.
func (r *Registry) OnlineUsers() []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]OnlineUser, 0, len(r.userToFD))
	for userID, fd := range r.userToFD {
		s, ok := r.sessions[fd]
		if !ok {
			continue
		}
		users = append(users, OnlineUser{UserID: userID, Nickname: s.Nickname})
	}
	return users
}

// ConnectedFDs returns every fd with a live session slot, regardless
// of login state.
func (r *Registry) ConnectedFDs() []FD {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fds := make([]FD, 0, len(r.sessions))
	for fd := range r.sessions {
		fds = append(fds, fd)
	}
	return fds
}
