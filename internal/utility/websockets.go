package utility

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RefreshMessage tells a dashboard client to refetch its pulse.
const RefreshMessage = "REFRESH"

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub holds one live dashboard connection per user: Map[UserID] -> Connection.
// A newer connection for the same user replaces the older one.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*websocket.Conn)}
}

// RegisterClient stores conn for userID, closing any connection it replaces.
func (h *Hub) RegisterClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[userID]; ok && old != conn {
		old.Close()
	}
	h.clients[userID] = conn
	log.Info().Str("user_id", userID).Msg("WebSocket Client Connected")
}

// UnregisterClient removes conn if it is still the registered one.
func (h *Hub) UnregisterClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[userID]; ok && cur == conn {
		delete(h.clients, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket Client Disconnected")
	}
}

// Notify pushes a refresh to userID's dashboard if one is connected.
func (h *Hub) Notify(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[userID]
	if !ok {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(RefreshMessage)); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send WS message, removing client")
		conn.Close()
		delete(h.clients, userID)
	}
}

// Connected reports how many dashboards are attached.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. Incoming messages are discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.RegisterClient(userID, conn)
	defer func() {
		h.UnregisterClient(userID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
