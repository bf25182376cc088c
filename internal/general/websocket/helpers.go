package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriteClose sends a close control frame with the given code and reason.
func (h *Hub) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := h.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	h.writeLocks.Delete(conn)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (h *Hub) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := h.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// lockOf returns the writer mutex for a specific connection.
func (h *Hub) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := h.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := h.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

// Send pushes a single JSON text frame to the user's session, if connected.
func (h *Hub) Send(userID string, msg any) error {
	v, ok := h.sessions.Load(userID)
	if !ok {
		return fmt.Errorf("user %s not connected", userID)
	}
	conn, _ := v.(*websocket.Conn)
	if conn == nil {
		return fmt.Errorf("no connection for user %s", userID)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return h.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// IsConnected reports whether a user currently has a live session.
func (h *Hub) IsConnected(userID string) bool {
	v, ok := h.sessions.Load(userID)
	return ok && v != nil
}
