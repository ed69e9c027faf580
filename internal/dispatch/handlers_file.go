package dispatch

import (
	"context"
	"errors"

	filesvc "duplexchat/internal/service/file"
	groupsvc "duplexchat/internal/service/group"

	"duplexchat/internal/models"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

func (d *Dispatcher) handleFileOffer(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)

	if fileID, hasID := getString(meta, "file_id"); hasID && fileID != "" {
		info, err := d.files.ResumeUpload(fileID, actor.UserID)
		if err != nil {
			d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeResumeFailed, err.Error()))
			return
		}
		d.sendEnvelope(fd, protocol.FileAccept, reqID, ok(map[string]any{
			"file_id": info.FileID, "next_offset": info.UploadedSize, "chunk_size": d.files.ChunkSize(),
		}))
		return
	}

	convType, _ := getString(meta, "conversation_type")
	conversationID, _ := getString(meta, "conversation_id")
	fileName, _ := getString(meta, "file_name")
	fileSize, _ := getInt64(meta, "file_size")
	sha256Hex, _ := getString(meta, "sha256")

	if !validConversationType(convType) {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeInvalidConversationType, "invalid conversation_type"))
		return
	}
	if !validIdentifier(conversationID) {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeInvalidTarget, "invalid conversation_id"))
		return
	}
	if !validFileName(fileName) {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeInvalidRequest, "invalid file_name"))
		return
	}
	if fileSize <= 0 {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeInvalidSize, "invalid file_size"))
		return
	}
	if !validSHA256(sha256Hex) {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeInvalidSHA256, "invalid sha256"))
		return
	}

	recipients, errEnv := d.resolveRecipients(actor.UserID, convType, conversationID)
	if errEnv != nil {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, *errEnv)
		return
	}
	if len(recipients) == 0 {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeNoRecipients, "no recipients"))
		return
	}

	info, err := d.files.CreateUpload(filesvc.Offer{
		UploaderID:       actor.UserID,
		UploaderNickname: actor.Nickname,
		ConversationType: models.ConversationType(convType),
		ConversationID:   conversationID,
		FileName:         fileName,
		FileSize:         fileSize,
		SHA256:           sha256Hex,
		Recipients:       recipients,
	})
	if err != nil {
		d.sendEnvelope(fd, protocol.FileAccept, reqID, errEnvelope(CodeOfferFailed, err.Error()))
		return
	}
	d.sendEnvelope(fd, protocol.FileAccept, reqID, ok(map[string]any{
		"file_id": info.FileID, "next_offset": info.UploadedSize, "chunk_size": d.files.ChunkSize(),
	}))
}

// resolveRecipients mirrors handleMessageSend's addressing: the other
// party for a private conversation, or every other member for a group.
func (d *Dispatcher) resolveRecipients(actorID, convType, conversationID string) ([]string, *envelope) {
	if convType == string(models.ConversationPrivate) {
		exists, err := d.auth.UserExists(conversationID)
		if err != nil {
			e := errEnvelope(CodeStoreFailed, err.Error())
			return nil, &e
		}
		if !exists {
			e := errEnvelope(CodeTargetNotFound, "target not found")
			return nil, &e
		}
		return []string{conversationID}, nil
	}

	if _, err := d.groups.UserRole(actorID, conversationID); err != nil {
		code := CodeNotInGroup
		if errors.Is(err, groupsvc.ErrGroupNotFound) {
			code = CodeGroupNotFound
		}
		e := errEnvelope(code, "not in group")
		return nil, &e
	}
	members, err := d.groups.Members(conversationID)
	if err != nil {
		e := errEnvelope(CodeStoreFailed, err.Error())
		return nil, &e
	}
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		if m != actorID {
			recipients = append(recipients, m)
		}
	}
	return recipients, nil
}

func (d *Dispatcher) handleFileUploadChunk(fd session.FD, reqID uint64, pkt protocol.Packet, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	fileID, _ := getString(meta, "file_id")
	offset, _ := getInt64(meta, "offset")

	if !validIdentifier(fileID) {
		d.sendEnvelope(fd, protocol.FileUploadChunk, reqID, errEnvelope(CodeInvalidFileID, "invalid file_id"))
		return
	}
	if len(pkt.Binary) == 0 {
		d.sendEnvelope(fd, protocol.FileUploadChunk, reqID, errEnvelope(CodeEmptyChunk, "empty chunk"))
		return
	}
	if len(pkt.Binary) > d.files.ChunkSize() {
		d.sendEnvelope(fd, protocol.FileUploadChunk, reqID, errEnvelope(CodeChunkTooLarge, "chunk too large"))
		return
	}

	info, err := d.files.AppendChunk(fileID, actor.UserID, offset, pkt.Binary)
	if err != nil {
		fields := map[string]any{}
		if errors.Is(err, filesvc.ErrOffsetMismatch) {
			if current, resumeErr := d.files.ResumeUpload(fileID, actor.UserID); resumeErr == nil {
				fields["expected_offset"] = current.UploadedSize
			}
		}
		e := errEnvelope(CodeUploadFailed, err.Error())
		for k, v := range fields {
			e[k] = v
		}
		d.sendEnvelope(fd, protocol.FileUploadChunk, reqID, e)
		return
	}

	d.sendEnvelope(fd, protocol.FileUploadChunk, reqID, ok(map[string]any{"next_offset": info.UploadedSize}))
}

func (d *Dispatcher) handleFileUploadDone(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	fileID, _ := getString(meta, "file_id")
	if !validIdentifier(fileID) {
		d.sendEnvelope(fd, protocol.FileUploadDone, reqID, errEnvelope(CodeInvalidFileID, "invalid file_id"))
		return
	}

	file, err := d.files.FinalizeUpload(fileID, actor.UserID)
	if err != nil {
		d.sendEnvelope(fd, protocol.FileUploadDone, reqID, errEnvelope(CodeFinalizeFailed, err.Error()))
		return
	}

	d.sendEnvelope(fd, protocol.FileDone, reqID, ok(fileNoticeFields(*file)))

	targets, err := d.files.ListTargets(file.FileID)
	if err != nil {
		d.log.Warn(context.Background(), "dispatch: list targets failed", "file_id", file.FileID, "err", err)
		return
	}
	for _, userID := range targets {
		recipientFD, online := d.registry.FDForUser(userID)
		if !online {
			continue
		}
		d.sendEnvelope(recipientFD, protocol.FileDone, 0, envelope(fileNoticeFields(*file)))
		if err := d.files.MarkDelivered(userID, []string{file.FileID}); err != nil {
			d.log.Warn(context.Background(), "dispatch: mark file delivered failed", "user_id", userID, "err", err)
		}
	}
}

func (d *Dispatcher) handleFileDownloadRequest(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	fileID, _ := getString(meta, "file_id")
	offset, _ := getInt64(meta, "offset")

	if !validIdentifier(fileID) {
		d.sendEnvelope(fd, protocol.FileDownloadChunk, reqID, errEnvelope(CodeInvalidFileID, "invalid file_id"))
		return
	}

	data, file, err := d.files.ReadChunk(fileID, actor.UserID, offset)
	if err != nil {
		d.sendEnvelope(fd, protocol.FileDownloadChunk, reqID, errEnvelope(CodeDownloadFailed, err.Error()))
		return
	}

	done := offset+int64(len(data)) >= file.FileSize
	pkt := protocol.NewPacket(protocol.FileDownloadChunk, reqID, envelope{
		"status": "ok", "file_id": file.FileID, "offset": offset, "file_size": file.FileSize,
		"file_name": file.FileName, "sha256": file.SHA256, "done": done,
	}.marshal(), data)
	if err := d.outbox.Send(fd, pkt); err != nil {
		d.log.Warn(context.Background(), "dispatch: send failed", "fd", fd, "type", protocol.FileDownloadChunk, "err", err)
	}
}
