package dispatch

import (
	"context"
	"errors"

	groupsvc "duplexchat/internal/service/group"
	messagesvc "duplexchat/internal/service/message"

	"duplexchat/internal/models"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

func (d *Dispatcher) handleMessageSend(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	convType, _ := getString(meta, "conversation_type")
	conversationID, _ := getString(meta, "conversation_id")
	content, _ := getString(meta, "content")

	if !validConversationType(convType) {
		d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeInvalidConversationType, "invalid conversation_type"))
		return
	}
	if !validIdentifier(conversationID) {
		d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeInvalidTarget, "invalid conversation_id"))
		return
	}
	if !validContent(content) {
		d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeInvalidRequest, "invalid content"))
		return
	}

	var recipients []string
	if convType == string(models.ConversationPrivate) {
		exists, err := d.auth.UserExists(conversationID)
		if err != nil {
			d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeStoreFailed, err.Error()))
			return
		}
		if !exists {
			d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeTargetNotFound, "target not found"))
			return
		}
		recipients = []string{conversationID}
	} else {
		if _, err := d.groups.UserRole(actor.UserID, conversationID); err != nil {
			code := CodeNotInGroup
			if errors.Is(err, groupsvc.ErrGroupNotFound) {
				code = CodeGroupNotFound
			}
			d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(code, "not in group"))
			return
		}
		members, err := d.groups.Members(conversationID)
		if err != nil {
			d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeStoreFailed, err.Error()))
			return
		}
		for _, m := range members {
			if m != actor.UserID {
				recipients = append(recipients, m)
			}
		}
	}

	if len(recipients) == 0 {
		d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeNoRecipients, "no recipients"))
		return
	}

	msg, err := d.messages.Store(models.ConversationType(convType), conversationID, actor.UserID, actor.Nickname, content, recipients)
	if err != nil {
		if errors.Is(err, messagesvc.ErrInvalidInput) || errors.Is(err, messagesvc.ErrNoTargets) {
			d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeInvalidRequest, err.Error()))
			return
		}
		d.sendEnvelope(fd, protocol.MessageSend, reqID, errEnvelope(CodeStoreFailed, err.Error()))
		return
	}

	d.sendEnvelope(fd, protocol.MessageSend, reqID, ok(map[string]any{
		"message_id": msg.MessageID, "created_at": msg.CreatedAt.Unix(),
	}))

	for _, recipient := range recipients {
		recipientFD, online := d.registry.FDForUser(recipient)
		if !online {
			continue
		}
		deliverConvID := conversationID
		if convType == string(models.ConversationPrivate) {
			deliverConvID = actor.UserID
		}
		d.sendEnvelope(recipientFD, protocol.MessageDeliver, 0, envelope{
			"message_id":        msg.MessageID,
			"conversation_type": convType,
			"conversation_id":   deliverConvID,
			"sender_id":         actor.UserID,
			"sender_nickname":   actor.Nickname,
			"content":           content,
			"created_at":        msg.CreatedAt.Unix(),
		})
		if err := d.messages.MarkDelivered(recipient, []uint64{msg.MessageID}); err != nil {
			d.log.Warn(context.Background(), "dispatch: mark delivered failed", "user_id", recipient, "err", err)
		}
	}
}

func (d *Dispatcher) handleHistoryFetch(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)

	convType, _ := getString(meta, "conversation_type")
	conversationID, _ := getString(meta, "conversation_id")
	beforeID, _ := getInt64(meta, "before_message_id")
	limit, hasLimit := getInt64(meta, "limit")

	if !validConversationType(convType) {
		d.sendEnvelope(fd, protocol.HistoryResponse, reqID, errEnvelope(CodeInvalidConversationType, "invalid conversation_type"))
		return
	}
	if !validIdentifier(conversationID) {
		d.sendEnvelope(fd, protocol.HistoryResponse, reqID, errEnvelope(CodeInvalidTarget, "invalid conversation_id"))
		return
	}
	if !hasLimit || limit <= 0 {
		limit = int64(d.historyPageSize)
	}

	// A private history request is only ever "my messages with this
	// peer" — the store's conversation_id alone doesn't say who the
	// other party actually is, so the query below scopes to the pair.
	// A group request requires current membership, exactly like send.
	if convType == string(models.ConversationGroup) {
		if _, err := d.groups.UserRole(actor.UserID, conversationID); err != nil {
			code := CodeNotInGroup
			if errors.Is(err, groupsvc.ErrGroupNotFound) {
				code = CodeGroupNotFound
			}
			d.sendEnvelope(fd, protocol.HistoryResponse, reqID, errEnvelope(code, "not in group"))
			return
		}
	}

	messages, err := d.messages.History(models.ConversationType(convType), conversationID, actor.UserID, uint64(beforeID), int(limit))
	if err != nil {
		d.sendEnvelope(fd, protocol.HistoryResponse, reqID, errEnvelope(CodeStoreFailed, err.Error()))
		return
	}

	// messages arrives newest-first; reverse to ascending order and
	// compute the next page's cursor from the page's smallest id.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	var nextBefore uint64
	if len(messages) > 0 {
		nextBefore = messages[0].MessageID
	}

	page := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		page = append(page, map[string]any{
			"message_id":        m.MessageID,
			"conversation_type": string(m.ConversationType),
			"conversation_id":   m.ConversationID,
			"sender_id":         m.SenderID,
			"sender_nickname":   m.SenderNickname,
			"content":           m.Content,
			"created_at":        m.CreatedAt.Unix(),
		})
	}

	d.sendEnvelope(fd, protocol.HistoryResponse, reqID, ok(map[string]any{
		"conversation_type":      convType,
		"conversation_id":        conversationID,
		"messages":               page,
		"next_before_message_id": nextBefore,
	}))
}
