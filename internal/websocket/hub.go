// Package websocket pushes notifications to every open tab of a browser
// session. Tabs of the same session share one cookie and so one session id.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type outbound struct {
	sessionID uuid.UUID
	data      []byte
	except    *Client
}

type Hub struct {
	sessions   map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	landing    string
	mu         sync.RWMutex
}

// NewHub creates a hub; landing is where SESSION_ENDED sends the tabs
func NewHub(landing string) *Hub {
	return &Hub{
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		landing:    landing,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, clients := range h.sessions {
				for client := range clients {
					client.Close()
				}
			}
			h.sessions = make(map[uuid.UUID]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				clients := h.sessions[client.sessionID]
				if clients == nil {
					clients = make(map[*Client]bool)
					h.sessions[client.sessionID] = clients
				}
				clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.sessions[msg.sessionID] {
				if client == msg.except {
					continue
				}
				if !client.trySend(msg.data) {
					// slow tab; it reconnects and catches up from the page
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops a client. Caller holds mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
}

// Stop gracefully shuts down the hub and closes every connection.
// It blocks until Run has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Connections counts the open tabs of a session
func (h *Hub) Connections(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) publish(sessionID uuid.UUID, except *Client, msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("component", "hub").Msg("Failed to build message")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("component", "hub").Msg("Failed to marshal message")
		return
	}

	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.broadcast <- outbound{sessionID: sessionID, data: data, except: except}:
	case <-h.done:
	}
}

// Notify pushes a flash to the session's open tabs
func (h *Hub) Notify(sessionID uuid.UUID, flash domain.Flash) {
	h.publish(sessionID, nil, MessageTypeNotification, NotificationPayload{
		ID:      flash.ID,
		Level:   string(flash.Level),
		Message: flash.Message,
	})
}

// SessionCleared is a session.ClearFunc: every tab of a session whose token
// was cleared is sent to the landing page
func (h *Hub) SessionCleared(sessionID uuid.UUID, reason session.ClearReason) {
	log.Debug().Str("component", "hub").Str("session_id", sessionID.String()).Str("reason", string(reason)).Msg("Broadcasting session end")
	h.publish(sessionID, nil, MessageTypeSessionEnded, SessionEndedPayload{
		Reason:   string(reason),
		Redirect: h.landing,
	})
}

// dismiss mirrors a dismissal to the session's other tabs
func (h *Hub) dismiss(from *Client, id string) {
	h.publish(from.sessionID, from, MessageTypeDismissed, DismissPayload{ID: id})
}
