package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"worklog-server-go/internal/domain/auth/model"
)

func TestHubIndexing(t *testing.T) {
	hub := NewHub()
	identity := model.Identity{ID: 7}

	a := newConnection(nil, identity, "sess-a", nopLogger{})
	b := newConnection(nil, identity, "sess-b", nopLogger{})
	hub.Register(a)
	hub.Register(b)

	if hub.Count() != 2 {
		t.Fatalf("expected 2 connections, got %d", hub.Count())
	}
	if n := hub.PushToUser(7, []byte("hello")); n != 2 {
		t.Errorf("expected push to 2 channels, got %d", n)
	}
	select {
	case msg := <-a.send:
		if string(msg) != "hello" {
			t.Errorf("unexpected message %q", msg)
		}
	default:
		t.Error("expected queued message on first channel")
	}

	hub.Unregister(a)
	if hub.Count() != 1 {
		t.Errorf("expected 1 connection after unregister, got %d", hub.Count())
	}
	if n := hub.PushToUser(7, []byte("again")); n != 1 {
		t.Errorf("expected push to 1 channel, got %d", n)
	}
	if n := hub.PushToUser(99, []byte("nobody")); n != 0 {
		t.Errorf("expected no channels for unknown user, got %d", n)
	}
}

// dialPair establishes a real websocket so close semantics can be observed
// from the client side.
func dialPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = clientConn.Close() })

	select {
	case serverConn := <-serverCh:
		return serverConn, clientConn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server side of websocket")
		return nil, nil
	}
}

func TestHubCloseSession(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialPair(t)

	c := newConnection(serverConn, model.Identity{ID: 7}, "sess-close", nopLogger{})
	hub.Register(c)

	hub.CloseSession("sess-close")

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := clientConn.ReadMessage(); err == nil {
		t.Error("expected read failure after session close")
	}
}

func TestHubCloseUser(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialPair(t)

	c := newConnection(serverConn, model.Identity{ID: 8}, "sess-user", nopLogger{})
	hub.Register(c)

	hub.CloseUser(8)

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := clientConn.ReadMessage(); err == nil {
		t.Error("expected read failure after user-wide close")
	}
}
