package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub is the per-session fan-out registry: session id -> live connections.
// Broadcasting is fire-and-forget; a slow or dead subscriber is skipped, it
// never fails the operation that triggered the broadcast.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.sessions[client.sessionID] = clients
	}
	clients[client] = struct{}{}

	log.Info().
		Str("session_id", client.sessionID).
		Str("user_id", client.userID.String()).
		Msg("client connected to session")
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, registered := clients[client]; !registered {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
	client.close()

	log.Info().
		Str("session_id", client.sessionID).
		Str("user_id", client.userID.String()).
		Msg("client disconnected from session")
}

// Broadcast sends payload to every registered subscriber of the session
// except exclude. The subscriber set is snapshotted before iterating so
// concurrent disconnects cannot corrupt the walk.
func (h *Hub) Broadcast(sessionID string, payload any, exclude *Client) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal broadcast")
		return
	}

	for _, client := range h.snapshot(sessionID) {
		if client == exclude {
			continue
		}
		if !client.trySend(data) {
			log.Warn().
				Str("session_id", sessionID).
				Str("user_id", client.userID.String()).
				Msg("client gone or buffer full, dropping broadcast")
		}
	}
}

// Publish is the Broadcaster surface used by services; it never excludes.
func (h *Hub) Publish(sessionID string, payload any) {
	h.Broadcast(sessionID, payload, nil)
}

func (h *Hub) snapshot(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.sessions[sessionID]))
	for client := range h.sessions[sessionID] {
		clients = append(clients, client)
	}
	return clients
}

// SessionClientCount reports live subscribers for a session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
