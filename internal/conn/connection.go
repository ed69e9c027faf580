package conn

import (
	"context"
	"errors"
	"net"

	"duplexchat/internal/netio"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

type connection struct {
	fd     session.FD
	conn   net.Conn
	queue  *netio.WriteQueue
	server *Server
}

// readLoop blocks on reads and, after each one, decodes and dispatches
// every complete frame currently buffered, in arrival order — this is
// the goroutine-per-connection substitute for readiness-driven
// draining described in SPEC_FULL.md §4.3.
func (c *connection) readLoop(ctx context.Context) {
	defer c.server.disconnect(c.fd)

	var buf netio.ReadBuffer
	readBuf := make([]byte, 64*1024)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := c.conn.Read(readBuf)
		if n > 0 {
			buf.Append(readBuf[:n])
		}
		if err != nil {
			return
		}

		for {
			pkt, consumed, decodeErr := protocol.Decode(buf.Bytes())
			if errors.Is(decodeErr, protocol.ErrNeedMore) {
				break
			}
			if decodeErr != nil {
				// A framing violation is fatal to the connection.
				return
			}
			buf.Consume(consumed)
			c.server.dispatcher.Handle(c.fd, pkt)
		}
	}
}

// writeLoop is the sole writer of c.conn; it drains the write queue
// until the queue is closed by disconnect.
func (c *connection) writeLoop() {
	for data := range c.queue.Channel() {
		if _, err := c.conn.Write(data); err != nil {
			return
		}
	}
}
