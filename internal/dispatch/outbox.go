package dispatch

import (
	"context"

	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

// Outbox is the narrow interface the connection layer hands the
// dispatcher for writing packets — to the actor's own connection, or
// to any other connection, for fanout. Send must never block the
// caller on a slow peer; a full queue is the implementation's problem.
type Outbox interface {
	Send(fd session.FD, pkt protocol.Packet) error
}

func (d *Dispatcher) sendEnvelope(fd session.FD, typ protocol.Type, requestID uint64, e envelope) {
	pkt := protocol.NewPacket(typ, requestID, e.marshal(), nil)
	if err := d.outbox.Send(fd, pkt); err != nil {
		d.log.Warn(context.Background(), "dispatch: send failed", "fd", fd, "type", typ, "err", err)
	}
}

// BroadcastRoster sends the current online roster to every logged-in
// connection — used after a disconnect, per spec §4.3's disconnect
// sequence.
func (d *Dispatcher) BroadcastRoster() {
	users := d.registry.OnlineUsers()
	payload := make([]map[string]string, 0, len(users))
	for _, u := range users {
		payload = append(payload, map[string]string{"user_id": u.UserID, "nickname": u.Nickname})
	}
	e := envelope{"users": payload}
	for _, u := range users {
		fd, ok := d.registry.FDForUser(u.UserID)
		if !ok {
			continue
		}
		d.sendEnvelope(fd, protocol.UserListUpdate, 0, e)
	}
}
