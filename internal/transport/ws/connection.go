package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"worklog-server-go/internal/domain/auth/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Connection is one authenticated realtime channel. The identity and session
// are fixed at handshake time.
type Connection struct {
	conn      *websocket.Conn
	identity  model.Identity
	sessionID string
	logger    Logger

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(conn *websocket.Conn, identity model.Identity, sessionID string, logger Logger) *Connection {
	return &Connection{
		conn:      conn,
		identity:  identity,
		sessionID: sessionID,
		logger:    logger,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Send queues a message for delivery. A slow consumer whose buffer is full
// gets disconnected rather than blocking the sender.
func (c *Connection) Send(message []byte) {
	select {
	case c.send <- message:
	case <-c.done:
	default:
		c.logger.Warn("closing slow realtime consumer, user %d session %s", c.identity.ID, c.sessionID)
		c.Close()
	}
}

// Close shuts the channel down. Safe to call from any goroutine, repeatedly.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// writePump owns all writes on the underlying connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump drains the connection so control frames are processed. The server
// pushes state; inbound payloads are ignored.
func (c *Connection) readPump(onClose func(*Connection)) {
	defer func() {
		c.Close()
		onClose(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
