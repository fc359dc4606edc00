package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverConn returns the server side of a fresh WebSocket connection.
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no server connection")
		return nil
	}
}

func TestClientSendFailsAfterWritePumpExits(t *testing.T) {
	conn := serverConn(t)
	c := &Client{
		ID:   "c1",
		Conn: conn,
		Send: make(chan []byte, 1),
		done: make(chan struct{}),
	}

	// Writes fail on a closed connection, so the pump stops at the first message.
	require.NoError(t, conn.Close())
	go c.writePump()
	require.NoError(t, c.send([]byte(`{"type":"pong"}`)))

	assert.Eventually(t, func() bool {
		select {
		case <-c.done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	// With nobody draining the buffer, further sends must not block.
	c.Send <- []byte("fill")
	errc := make(chan error, 1)
	go func() { errc <- c.send([]byte("blocked")) }()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, errClientClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("send blocked after the write pump exited")
	}
}

func TestClientSendAfterClose(t *testing.T) {
	c := &Client{Send: make(chan []byte), done: make(chan struct{})}
	c.close()
	c.close()
	assert.ErrorIs(t, c.send([]byte("x")), errClientClosed)
}
