package dispatch

import (
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

func (d *Dispatcher) handleGroupCreate(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	name, _ := getString(meta, "name")
	if name == "" || len(name) > maxIdentifierLen {
		d.sendEnvelope(fd, protocol.GroupCreate, reqID, errEnvelope(CodeInvalidName, "invalid name"))
		return
	}

	group, err := d.groups.Create(actor.UserID, name)
	if err != nil {
		d.sendEnvelope(fd, protocol.GroupCreate, reqID, errEnvelope(groupErrCode(err), err.Error()))
		return
	}
	d.sendEnvelope(fd, protocol.GroupCreate, reqID, ok(map[string]any{
		"group_id": group.GroupID, "name": group.Name,
	}))
}

func (d *Dispatcher) handleGroupJoin(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	groupID, _ := getString(meta, "group_id")
	if !validIdentifier(groupID) {
		d.sendEnvelope(fd, protocol.GroupJoin, reqID, errEnvelope(CodeInvalidGroupID, "invalid group_id"))
		return
	}

	if err := d.groups.Join(actor.UserID, groupID); err != nil {
		d.sendEnvelope(fd, protocol.GroupJoin, reqID, errEnvelope(groupErrCode(err), err.Error()))
		return
	}
	d.sendEnvelope(fd, protocol.GroupJoin, reqID, ok(map[string]any{"group_id": groupID}))
}

func (d *Dispatcher) handleGroupLeave(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	groupID, _ := getString(meta, "group_id")
	if !validIdentifier(groupID) {
		d.sendEnvelope(fd, protocol.GroupLeave, reqID, errEnvelope(CodeInvalidGroupID, "invalid group_id"))
		return
	}

	if err := d.groups.Leave(actor.UserID, groupID); err != nil {
		d.sendEnvelope(fd, protocol.GroupLeave, reqID, errEnvelope(groupErrCode(err), err.Error()))
		return
	}
	d.sendEnvelope(fd, protocol.GroupLeave, reqID, ok(map[string]any{"group_id": groupID}))
}

func (d *Dispatcher) handleGroupAdmin(fd session.FD, reqID uint64, meta map[string]any) {
	actor, _ := currentUser(d.registry, fd)
	action, _ := getString(meta, "action")
	groupID, _ := getString(meta, "group_id")
	if !validIdentifier(groupID) {
		d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeInvalidGroupID, "invalid group_id"))
		return
	}

	var err error
	switch action {
	case "rename":
		name, _ := getString(meta, "name")
		if name == "" || len(name) > maxIdentifierLen {
			d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeInvalidName, "invalid name"))
			return
		}
		err = d.groups.Rename(actor.UserID, groupID, name)
	case "kick":
		target, _ := getString(meta, "target_user_id")
		if !validIdentifier(target) {
			d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeInvalidTarget, "invalid target_user_id"))
			return
		}
		err = d.groups.Kick(actor.UserID, groupID, target)
	case "dissolve":
		err = d.groups.Dissolve(actor.UserID, groupID)
	case "promote":
		target, _ := getString(meta, "target_user_id")
		if !validIdentifier(target) {
			d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeInvalidTarget, "invalid target_user_id"))
			return
		}
		err = d.groups.SetAdmin(actor.UserID, groupID, target, true)
	case "demote":
		target, _ := getString(meta, "target_user_id")
		if !validIdentifier(target) {
			d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeInvalidTarget, "invalid target_user_id"))
			return
		}
		err = d.groups.SetAdmin(actor.UserID, groupID, target, false)
	default:
		d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(CodeUnknownAction, "unknown action"))
		return
	}

	if err != nil {
		d.sendEnvelope(fd, protocol.GroupAdmin, reqID, errEnvelope(groupErrCode(err), err.Error()))
		return
	}
	d.sendEnvelope(fd, protocol.GroupAdmin, reqID, ok(map[string]any{"group_id": groupID, "action": action}))
}
