package handlers

import (
	"net/http"

	"github.com/dom/stay-portal/internal/api/middleware"
	"github.com/dom/stay-portal/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Handle attaches a tab to its browser session's notification stream.
// Only signed-in sessions may connect; the cookie identifies the session.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.GetStore(r.Context())
	if !ok {
		http.Error(w, "Session required", http.StatusUnauthorized)
		return
	}
	token, err := store.Token(r.Context())
	if err != nil || token == "" {
		http.Error(w, "Login required", http.StatusUnauthorized)
		return
	}

	// Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("component", "web").Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, store.ID())
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
