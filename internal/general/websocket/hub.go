package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	readIdleTimeout  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub keeps one authenticated WebSocket session per user and pushes
// connect-request event notifications to them.
type Hub struct {
	logger     *logger.Logger
	jwtMgr     *jwt.Manager
	writeLocks sync.Map // key: *websocket.Conn -> *sync.Mutex
	sessions   sync.Map // key: userID(string) -> *websocket.Conn
}

// NewHub creates a notification hub with JWT auth.
func NewHub(logger *logger.Logger, jwtMgr *jwt.Manager) *Hub {
	return &Hub{logger: logger, jwtMgr: jwtMgr}
}

// Connect upgrades the request, authenticates the first frame, and keeps the
// session registered until the client disconnects. Customers and drivers both
// connect here; the subject in the token decides which events they receive.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()
	defer h.writeLocks.Delete(conn)

	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		h.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		h.sendAuthError(conn, "internal server error")
		return
	}

	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			h.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			h.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		h.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}

	if msgType != websocket.TextMessage {
		h.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		h.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, h.jwtMgr, user.RoleCustomer, user.RoleDriver)
	if err != nil {
		h.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		h.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// Path param, when present, must match the subject in claims.
	if uid := r.PathValue("user_id"); uid != "" && uid != res.Claims.Subject {
		h.logger.Error(r.Context(), "ws_auth_failed", "User ID mismatch", nil, map[string]any{
			"path_user_id":  uid,
			"token_subject": res.Claims.Subject,
		})
		h.sendAuthError(conn, "user ID mismatch")
		return
	}
	userID := res.Claims.Subject

	if err := h.sendAuthSuccess(conn, userID); err != nil {
		h.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	h.logger.Info(r.Context(), "ws_connected", "Notification WebSocket connected",
		map[string]any{"user_id": userID, "role": res.Claims.Role})

	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	})

	// Ping loop (every 30s) using the per-connection writer lock.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := h.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = conn.Close()
				h.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err,
					map[string]any{"user_id": userID})
				return
			}
		}
	}()

	// Register this user for outbound notifications; unregister on exit.
	// A new connection from the same user replaces the old one.
	h.sessions.Store(userID, conn)
	defer func() {
		if v, ok := h.sessions.Load(userID); ok && v == conn {
			h.sessions.Delete(userID)
		}
	}()

	// Read loop. Notifications flow one way; the only inbound frames we
	// answer are pings wrapped in the minimal envelope.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error(r.Context(), "ws_unexpected_close", "Connection closed unexpectedly", err,
					map[string]any{"user_id": userID})
				h.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				h.logger.Info(r.Context(), "ws_connection_closed", "Connection closed normally",
					map[string]any{"user_id": userID})
				h.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = h.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
			continue
		}

		switch msg.Type {
		case "ping":
			_ = h.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"pong"}`))
		default:
			_ = h.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

// sendAuthError sends authentication error message to client.
func (h *Hub) sendAuthError(conn *websocket.Conn, message string) error {
	errorMsg := map[string]interface{}{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	}
	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return err
	}
	return h.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

// sendAuthSuccess sends authentication success message to client.
func (h *Hub) sendAuthSuccess(conn *websocket.Conn, userID string) error {
	successMsg := map[string]interface{}{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	msgBytes, err := json.Marshal(successMsg)
	if err != nil {
		return err
	}
	return h.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}
