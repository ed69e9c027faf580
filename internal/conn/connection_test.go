package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duplexchat/internal/dispatch"
	"duplexchat/internal/logging"
	"duplexchat/internal/protocol"
	"duplexchat/internal/session"

	authsvc "duplexchat/internal/service/auth"
	filesvc "duplexchat/internal/service/file"
	groupsvc "duplexchat/internal/service/group"
	messagesvc "duplexchat/internal/service/message"
)

func newTestServer() (*Server, net.Conn, net.Conn) {
	registry := session.New()
	log := logging.NewTextLogger("error")
	srv := NewServer(registry, log, 10, 16)
	d := dispatch.New(registry, &authsvc.Service{}, &groupsvc.Service{}, &messagesvc.Service{}, &filesvc.Service{}, srv, log, 10)
	srv.SetDispatcher(d)

	clientSide, serverSide := net.Pipe()
	return srv, clientSide, serverSide
}

func TestConnectionRoundTripsValidationError(t *testing.T) {
	srv, clientSide, serverSide := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.handleAccept(ctx, serverSide)

	// AuthRegister with an empty user_id must fail validation without
	// ever touching the (nil) store.
	pkt := protocol.NewPacket(protocol.AuthRegister, 42, []byte(`{"user_id":"","nickname":"a","password":"p"}`), nil)
	_, err := clientSide.Write(protocol.Encode(pkt))
	require.NoError(t, err)

	clientSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	readBuf := make([]byte, 4096)
	n, err := clientSide.Read(readBuf)
	require.NoError(t, err)

	resp, consumed, decodeErr := protocol.Decode(readBuf[:n])
	require.NoError(t, decodeErr)
	assert.Equal(t, n, consumed)
	assert.Equal(t, protocol.AuthError, resp.Header.Type)
	assert.Equal(t, uint64(42), resp.Header.RequestID)
	assert.Contains(t, string(resp.Meta), "INVALID_USER_ID")

	clientSide.Close()
}
