// Package messagesvc stores chat messages and their per-recipient
// delivery targets, and serves both the undelivered-on-reconnect feed
// and paginated history. Grounded on the original MessageService's
// storeMessage/fetchUndelivered/markDelivered, plus the
// cursor-paginated History spec.md §9 calls out as supplemental.
package messagesvc

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"duplexchat/internal/models"
	"duplexchat/internal/store"
)

var (
	ErrInvalidInput = errors.New("messagesvc: sender_id, conversation_id, and content are required")
	ErrNoTargets    = errors.New("messagesvc: message must have at least one target")
)

// Service is the message collaborator named in spec.md §4.7.
type Service struct {
	db *gorm.DB
}

// NewService wraps an open store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Store inserts a message and one MessageTarget row per recipient in
// a single transaction — spec.md §3 invariant 1: a message and its
// targets are never visible to readers half-written.
func (s *Service) Store(convType models.ConversationType, conversationID, senderID, senderNickname, content string, targetUserIDs []string) (*models.Message, error) {
	if senderID == "" || conversationID == "" || content == "" {
		return nil, ErrInvalidInput
	}
	if len(targetUserIDs) == 0 {
		return nil, ErrNoTargets
	}

	msg := &models.Message{
		ConversationType: convType,
		ConversationID:   conversationID,
		SenderID:         senderID,
		SenderNickname:   senderNickname,
		Content:          content,
	}

	err := store.Transact(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		targets := make([]models.MessageTarget, 0, len(targetUserIDs))
		for _, userID := range targetUserIDs {
			targets = append(targets, models.MessageTarget{MessageID: msg.MessageID, UserID: userID})
		}
		return tx.Create(&targets).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Undelivered returns up to limit messages still pending delivery to
// userID, oldest first, joined against its MessageTarget row.
func (s *Service) Undelivered(userID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Joins("JOIN message_targets ON message_targets.message_id = messages.message_id").
		Where("message_targets.user_id = ? AND message_targets.delivered_at IS NULL", userID).
		Order("messages.message_id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkDelivered stamps delivered_at for userID's targets on the given
// message ids.
func (s *Service) MarkDelivered(userID string, messageIDs []uint64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	now := time.Now()
	return s.db.Model(&models.MessageTarget{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Update("delivered_at", &now).Error
}

// History returns up to pageSize messages in conversationID with
// message_id strictly less than beforeID (0 meaning "most recent"),
// newest first — a cursor-based page for the HistoryFetch operation.
//
// For a private conversation, conversation_id is stored as whichever
// party the sender named as their peer, so a plain conversation_id
// match would surface every message anyone ever addressed to that
// user_id. viewerID scopes the query to the pair actually exchanging
// messages with conversationID, matching either direction of storage.
func (s *Service) History(convType models.ConversationType, conversationID, viewerID string, beforeID uint64, pageSize int) ([]models.Message, error) {
	if pageSize <= 0 {
		return nil, nil
	}
	q := s.db.Where("conversation_type = ?", convType)
	if convType == models.ConversationPrivate {
		q = q.Where(
			"(conversation_id = ? AND sender_id = ?) OR (conversation_id = ? AND sender_id = ?)",
			conversationID, viewerID, viewerID, conversationID,
		)
	} else {
		q = q.Where("conversation_id = ?", conversationID)
	}
	if beforeID > 0 {
		q = q.Where("message_id < ?", beforeID)
	}
	var messages []models.Message
	err := q.Order("message_id DESC").Limit(pageSize).Find(&messages).Error
	return messages, err
}
