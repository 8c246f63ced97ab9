package ws

import (
	"sync"
)

// Hub indexes live connections by user and session so session lifecycle
// events can sever exactly the affected channels.
type Hub struct {
	mu        sync.RWMutex
	byUser    map[uint]map[*Connection]struct{}
	bySession map[string][]*Connection
}

func NewHub() *Hub {
	return &Hub{
		byUser:    make(map[uint]map[*Connection]struct{}),
		bySession: make(map[string][]*Connection),
	}
}

func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := c.identity.ID
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Connection]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	h.bySession[c.sessionID] = append(h.bySession[c.sessionID], c)
}

func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := c.identity.ID
	if conns, ok := h.byUser[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byUser, userID)
		}
	}

	remaining := h.bySession[c.sessionID][:0]
	for _, other := range h.bySession[c.sessionID] {
		if other != c {
			remaining = append(remaining, other)
		}
	}
	if len(remaining) == 0 {
		delete(h.bySession, c.sessionID)
	} else {
		h.bySession[c.sessionID] = remaining
	}
}

// PushToUser delivers a message to every channel the user has open.
func (h *Hub) PushToUser(userID uint, message []byte) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Send(message)
	}
	return len(conns)
}

// CloseSession severs the channels bound to one session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.RLock()
	conns := append([]*Connection(nil), h.bySession[sessionID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// CloseUser severs every channel of one user.
func (h *Hub) CloseUser(userID uint) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// CloseAll severs everything; used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0)
	for _, set := range h.byUser {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.byUser {
		total += len(set)
	}
	return total
}
