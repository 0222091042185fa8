package main

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// writeWait bounds how long one slow client can stall a broadcast.
const writeWait = 10 * time.Second

// hubClient wraps a WebSocket connection with a mutex so broadcasts and
// the hello message never interleave writes.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// hub fans event messages out to every connected WebSocket client. The
// stream is push-only: client messages are read and discarded, the read
// loop exists to notice disconnects.
type hub struct {
	upgrader websocket.Upgrader
	hello    []byte

	mu      sync.RWMutex
	clients map[string]*hubClient
}

func newHub(hello []byte) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hello:   hello,
		clients: make(map[string]*hubClient),
	}
}

// HandleWS upgrades one HTTP request and serves it until the client goes
// away.
func (h *hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	client := &hubClient{conn: conn}

	h.mu.Lock()
	h.clients[connID] = client
	h.mu.Unlock()
	defer h.removeClient(connID)

	slog.Info("client connected", "conn", connID, "remote", r.RemoteAddr)

	if len(h.hello) > 0 {
		if err := client.write(h.hello); err != nil {
			slog.Warn("hello write failed", "conn", connID, "err", err)
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !isConnectionClosedError(err) {
				slog.Warn("client read failed", "conn", connID, "err", err)
			}
			return
		}
	}
}

func (h *hub) removeClient(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		slog.Info("client disconnected", "conn", connID)
	}
}

// Broadcast sends one message to every connected client, dropping clients
// whose connection turns out to be dead.
func (h *hub) Broadcast(message []byte) {
	h.mu.RLock()
	clients := make(map[string]*hubClient, len(h.clients))
	for connID, client := range h.clients {
		clients[connID] = client
	}
	h.mu.RUnlock()

	var dead []string
	for connID, client := range clients {
		if err := client.write(message); err != nil {
			if isConnectionClosedError(err) {
				dead = append(dead, connID)
			} else {
				slog.Error("broadcast write failed", "conn", connID, "err", err)
			}
		}
	}
	for _, connID := range dead {
		h.removeClient(connID)
	}
}

// ClientCount reports the number of connected clients.
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client, for shutdown.
func (h *hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, client := range h.clients {
		client.mu.Lock()
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		client.conn.Close()
		client.mu.Unlock()
		delete(h.clients, connID)
	}
}

// isConnectionClosedError reports whether the error indicates a closed
// connection rather than a protocol problem.
func isConnectionClosedError(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived) ||
		strings.Contains(err.Error(), "close sent") ||
		strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}
