// Package conn adapts the original single-threaded reactor into a
// goroutine-per-connection model, per SPEC_FULL.md §4.3: an accept
// loop spawns a reader goroutine and a writer goroutine for each
// connection, and a connection's write queue is the only point at
// which another goroutine may touch its outbound bytes.
package conn

import (
	"context"
	"errors"
	"net"
	"sync"

	"duplexchat/internal/dispatch"
	"duplexchat/internal/logging"
	"duplexchat/internal/netio"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"
)

// Server owns the listener, the live connection table, and implements
// dispatch.Outbox so the dispatcher can hand bytes to any connection,
// including ones other than the one that triggered the send.
type Server struct {
	registry   *session.Registry
	log        logging.Logger
	dispatcher *dispatch.Dispatcher

	maxClients       int
	maxPendingWrites int

	mu     sync.Mutex
	conns  map[session.FD]*connection
	nextFD uint64
}

// NewServer builds a Server with no dispatcher yet — call
// SetDispatcher once the dispatcher (which needs this Server as its
// Outbox) has been constructed, breaking the construction cycle.
func NewServer(registry *session.Registry, log logging.Logger, maxClients, maxPendingWrites int) *Server {
	return &Server{
		registry:         registry,
		log:              log,
		maxClients:       maxClients,
		maxPendingWrites: maxPendingWrites,
		conns:            make(map[session.FD]*connection),
	}
}

// SetDispatcher wires the dispatcher after construction.
func (s *Server) SetDispatcher(d *dispatch.Dispatcher) {
	s.dispatcher = d
}

// Send implements dispatch.Outbox by enqueuing onto the target
// connection's write queue, wherever that connection lives.
func (s *Server) Send(fd session.FD, pkt protocol.Packet) error {
	s.mu.Lock()
	c, ok := s.conns[fd]
	s.mu.Unlock()
	if !ok {
		return errors.New("conn: unknown connection")
	}
	if err := c.queue.Enqueue(protocol.Encode(pkt)); err != nil {
		s.disconnect(fd)
		return err
	}
	return nil
}

// Serve accepts connections on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		netConn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleAccept(ctx, netConn)
	}
}

func (s *Server) handleAccept(ctx context.Context, netConn net.Conn) {
	s.mu.Lock()
	count := len(s.conns)
	s.mu.Unlock()
	if count >= s.maxClients {
		netConn.Close()
		return
	}

	if tcpConn, ok := netConn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
		tcpConn.SetKeepAlive(true)
	}

	s.mu.Lock()
	s.nextFD++
	fd := session.FD(s.nextFD)
	c := &connection{
		fd:     fd,
		conn:   netConn,
		queue:  netio.NewWriteQueue(s.maxPendingWrites),
		server: s,
	}
	s.conns[fd] = c
	s.mu.Unlock()

	s.registry.AddConnection(fd)

	go c.writeLoop()
	go c.readLoop(ctx)
}

func (s *Server) disconnect(fd session.FD) {
	s.mu.Lock()
	c, ok := s.conns[fd]
	if ok {
		delete(s.conns, fd)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.registry.RemoveConnection(fd)
	c.conn.Close()
	c.queue.Close()

	if s.dispatcher != nil {
		s.dispatcher.BroadcastRoster()
	}
}
