package dispatch

import (
	"context"
	"errors"

	authsvc "duplexchat/internal/service/auth"

	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

func (d *Dispatcher) handleRegister(fd session.FD, reqID uint64, meta map[string]any) {
	userID, _ := getString(meta, "user_id")
	nickname, _ := getString(meta, "nickname")
	password, _ := getString(meta, "password")

	if !validIdentifier(userID) {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeInvalidUserID, "invalid user_id"))
		return
	}
	if !validIdentifier(nickname) {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeInvalidNickname, "invalid nickname"))
		return
	}
	if password == "" || len(password) > maxIdentifierLen {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeInvalidPassword, "invalid password"))
		return
	}

	err := d.auth.Register(userID, nickname, password)
	switch {
	case err == nil:
		d.sendEnvelope(fd, protocol.AuthOk, reqID, ok(map[string]any{
			"user_id": userID, "nickname": nickname, "registered": true, "logged_in": false,
		}))
	case errors.Is(err, authsvc.ErrUserExists):
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeUserAlreadyExists, "user already exists"))
	case errors.Is(err, authsvc.ErrInvalidInput):
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeInvalidRequest, "invalid input"))
	default:
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeStoreFailed, err.Error()))
	}
}

func (d *Dispatcher) handleLogin(fd session.FD, reqID uint64, meta map[string]any) {
	userID, _ := getString(meta, "user_id")
	password, _ := getString(meta, "password")

	if !validIdentifier(userID) || password == "" || len(password) > maxIdentifierLen {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeLoginFailed, "invalid credentials"))
		return
	}

	user, err := d.auth.Login(userID, password)
	if err != nil {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeLoginFailed, "invalid credentials"))
		return
	}

	if err := d.registry.Login(fd, user.UserID, user.Nickname); err != nil {
		d.sendEnvelope(fd, protocol.AuthError, reqID, errEnvelope(CodeLoginFailed, "already online elsewhere"))
		return
	}

	roster := d.registry.OnlineUsers()
	onlineUsers := make([]map[string]string, 0, len(roster))
	for _, u := range roster {
		onlineUsers = append(onlineUsers, map[string]string{"user_id": u.UserID, "nickname": u.Nickname})
	}
	d.sendEnvelope(fd, protocol.AuthOk, reqID, ok(map[string]any{
		"user_id": user.UserID, "nickname": user.Nickname,
		"registered": false, "logged_in": true, "online_users": onlineUsers,
	}))

	d.broadcastRosterExcept(user.UserID)
	d.drainSpools(fd, user.UserID)
}

func (d *Dispatcher) broadcastRosterExcept(justLoggedInUserID string) {
	users := d.registry.OnlineUsers()
	payload := make([]map[string]string, 0, len(users))
	for _, u := range users {
		payload = append(payload, map[string]string{"user_id": u.UserID, "nickname": u.Nickname})
	}
	e := envelope{"users": payload}
	for _, u := range users {
		if u.UserID == justLoggedInUserID {
			continue
		}
		fd, ok := d.registry.FDForUser(u.UserID)
		if !ok {
			continue
		}
		d.sendEnvelope(fd, protocol.UserListUpdate, 0, e)
	}
}

// drainSpools delivers a logged-in user's undelivered messages and
// file notices in history_page_size batches before any other
// server-initiated traffic reaches them, per spec §4.9 fanout rules.
func (d *Dispatcher) drainSpools(fd session.FD, userID string) {
	for {
		messages, err := d.messages.Undelivered(userID, d.historyPageSize)
		if err != nil {
			d.log.Warn(context.Background(), "dispatch: spool drain failed", "user_id", userID, "err", err)
			break
		}
		if len(messages) == 0 {
			break
		}
		ids := make([]uint64, 0, len(messages))
		for _, m := range messages {
			d.sendEnvelope(fd, protocol.MessageDeliver, 0, envelope{
				"message_id":        m.MessageID,
				"conversation_type": string(m.ConversationType),
				"conversation_id":   m.ConversationID,
				"sender_id":         m.SenderID,
				"sender_nickname":   m.SenderNickname,
				"content":           m.Content,
				"created_at":        m.CreatedAt.Unix(),
			})
			ids = append(ids, m.MessageID)
		}
		if err := d.messages.MarkDelivered(userID, ids); err != nil {
			d.log.Warn(context.Background(), "dispatch: mark delivered failed", "user_id", userID, "err", err)
			break
		}
		if len(messages) < d.historyPageSize {
			break
		}
	}

	for {
		files, err := d.files.Undelivered(userID, d.historyPageSize)
		if err != nil {
			d.log.Warn(context.Background(), "dispatch: file spool drain failed", "user_id", userID, "err", err)
			break
		}
		if len(files) == 0 {
			break
		}
		ids := make([]string, 0, len(files))
		for _, f := range files {
			d.sendEnvelope(fd, protocol.FileDone, 0, envelope(fileNoticeFields(f)))
			ids = append(ids, f.FileID)
		}
		if err := d.files.MarkDelivered(userID, ids); err != nil {
			d.log.Warn(context.Background(), "dispatch: mark file delivered failed", "user_id", userID, "err", err)
			break
		}
		if len(files) < d.historyPageSize {
			break
		}
	}
}
