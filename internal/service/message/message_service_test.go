package messagesvc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"duplexchat/internal/models"
)

func TestStoreRejectsEmptyFields(t *testing.T) {
	s := &Service{}

	msg, err := s.Store(models.ConversationPrivate, "", "alice", "Alice", "hi", []string{"bob"})
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStoreRejectsNoTargets(t *testing.T) {
	s := &Service{}

	msg, err := s.Store(models.ConversationPrivate, "bob", "alice", "Alice", "hi", nil)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestMarkDeliveredNoopOnEmptyIDs(t *testing.T) {
	s := &Service{}
	assert.NoError(t, s.MarkDelivered("alice", nil))
}

func TestHistoryNoopOnZeroPageSize(t *testing.T) {
	s := &Service{}
	messages, err := s.History(models.ConversationGroup, "g1", "alice", 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, messages)
}
