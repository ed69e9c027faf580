// Package dispatch is the single routing surface for inbound packets:
// it decodes metadata JSON, gates on authentication, validates field
// lengths, calls the appropriate service, and writes back a response
// envelope plus whatever fanout the operation requires. Grounded on
// spec.md §4.9/§4.10/§7, generalizing the teacher's HTTP-status
// `switch errors.Is(...)` idiom to envelope codes over a framed
// socket instead of a REST response.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"

	authsvc "duplexchat/internal/service/auth"
	filesvc "duplexchat/internal/service/file"
	groupsvc "duplexchat/internal/service/group"
	messagesvc "duplexchat/internal/service/message"

	"duplexchat/internal/logging"
	"duplexchat/internal/models"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

// Dispatcher owns no connection state of its own; fd identifies the
// acting connection for every call, and all state lives in the
// registry, the services, or the store behind them.
type Dispatcher struct {
	registry        *session.Registry
	auth            *authsvc.Service
	groups          *groupsvc.Service
	messages        *messagesvc.Service
	files           *filesvc.Service
	outbox          Outbox
	log             logging.Logger
	historyPageSize int
}

// New wires a Dispatcher to its collaborators. outbox is supplied by
// the connection layer once it exists (it implements Send against the
// live write queues).
func New(registry *session.Registry, auth *authsvc.Service, groups *groupsvc.Service, messages *messagesvc.Service, files *filesvc.Service, outbox Outbox, log logging.Logger, historyPageSize int) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		auth:            auth,
		groups:          groups,
		messages:        messages,
		files:           files,
		outbox:          outbox,
		log:             log,
		historyPageSize: historyPageSize,
	}
}

var packetsRequiringAuth = map[protocol.Type]bool{
	protocol.GroupCreate:         true,
	protocol.GroupJoin:           true,
	protocol.GroupLeave:          true,
	protocol.GroupAdmin:          true,
	protocol.MessageSend:         true,
	protocol.HistoryFetch:        true,
	protocol.FileOffer:           true,
	protocol.FileUploadChunk:     true,
	protocol.FileUploadDone:      true,
	protocol.FileDownloadRequest: true,
}

// Handle routes one decoded, already-framing-valid packet. It returns
// nothing: request failures become envelopes sent back over fd, and an
// unknown packet type is only logged, so no outcome of Handle closes
// the connection.
func (d *Dispatcher) Handle(fd session.FD, pkt protocol.Packet) {
	reqID := pkt.Header.RequestID

	var meta map[string]any
	if len(pkt.Meta) > 0 {
		if err := json.Unmarshal(pkt.Meta, &meta); err != nil {
			d.sendEnvelope(fd, pkt.Header.Type, reqID, errEnvelope(CodeInvalidJSON, err.Error()))
			return
		}
	}
	if meta == nil {
		meta = map[string]any{}
	}

	if packetsRequiringAuth[pkt.Header.Type] && !d.registry.IsLoggedIn(fd) {
		d.sendEnvelope(fd, pkt.Header.Type, reqID, errEnvelope(CodeNotLoggedIn, "not logged in"))
		return
	}

	switch pkt.Header.Type {
	case protocol.AuthRegister:
		d.handleRegister(fd, reqID, meta)
	case protocol.AuthLogin:
		d.handleLogin(fd, reqID, meta)
	case protocol.GroupCreate:
		d.handleGroupCreate(fd, reqID, meta)
	case protocol.GroupJoin:
		d.handleGroupJoin(fd, reqID, meta)
	case protocol.GroupLeave:
		d.handleGroupLeave(fd, reqID, meta)
	case protocol.GroupAdmin:
		d.handleGroupAdmin(fd, reqID, meta)
	case protocol.MessageSend:
		d.handleMessageSend(fd, reqID, meta)
	case protocol.HistoryFetch:
		d.handleHistoryFetch(fd, reqID, meta)
	case protocol.FileOffer:
		d.handleFileOffer(fd, reqID, meta)
	case protocol.FileUploadChunk:
		d.handleFileUploadChunk(fd, reqID, pkt, meta)
	case protocol.FileUploadDone:
		d.handleFileUploadDone(fd, reqID, meta)
	case protocol.FileDownloadRequest:
		d.handleFileDownloadRequest(fd, reqID, meta)
	default:
		d.log.Warn(context.Background(), "dispatch: unknown packet type", "type", pkt.Header.Type)
	}
}

func currentUser(registry *session.Registry, fd session.FD) (session.Session, bool) {
	s, err := registry.Get(fd)
	if err != nil || !s.LoggedIn {
		return session.Session{}, false
	}
	return s, true
}

func fileNoticeFields(f models.File) map[string]any {
	return map[string]any{
		"file_id":           f.FileID,
		"conversation_type": string(f.ConversationType),
		"conversation_id":   f.ConversationID,
		"file_name":         f.FileName,
		"file_size":         f.FileSize,
		"sha256":            f.SHA256,
		"uploader_id":       f.UploaderID,
		"uploader_nickname": f.UploaderNickname,
		"created_at":        f.CreatedAt.Unix(),
	}
}

func groupErrCode(err error) string {
	switch {
	case errors.Is(err, groupsvc.ErrGroupNotFound):
		return CodeGroupNotFound
	case errors.Is(err, groupsvc.ErrNotInGroup):
		return CodeNotInGroup
	case errors.Is(err, groupsvc.ErrAlreadyMember):
		return CodeInvalidRequest
	case errors.Is(err, groupsvc.ErrOwnerCannotLeave),
		errors.Is(err, groupsvc.ErrCannotKickOwner),
		errors.Is(err, groupsvc.ErrAdminCannotKickAdmin),
		errors.Is(err, groupsvc.ErrOwnerOnly),
		errors.Is(err, groupsvc.ErrCannotChangeOwner),
		errors.Is(err, groupsvc.ErrPermissionDenied):
		return CodePermissionDenied
	default:
		return CodeStoreFailed
	}
}
