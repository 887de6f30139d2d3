package stream

import (
	"encoding/json"
	"log"
	"sync"
)

// Event is the envelope written to every websocket client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans session updates out to the websocket clients watching that session.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.SessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.SessionID] = set
	}
	set[c] = struct{}{}
	log.Printf("[WEBSOCKET] Client connected: session=%s watchers=%d", c.SessionID, len(set))
}

// registerIfLive registers c, then drops it again when alive reports the
// session gone. A session closed between its lookup and the registration has
// already run CloseSession, so the re-check is what disconnects such a client.
func (h *Hub) registerIfLive(c *Client, alive func() bool) bool {
	h.register(c)
	if alive == nil || alive() {
		return true
	}
	h.unregister(c)
	return false
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked removes c and closes its send channel. Callers hold h.mu.
func (h *Hub) dropLocked(c *Client) {
	set, ok := h.clients[c.SessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.SessionID)
	}
	log.Printf("[WEBSOCKET] Client disconnected: session=%s watchers=%d", c.SessionID, len(set))
}

// Publish sends an event to every client of the session. Clients whose buffer
// is full are disconnected rather than blocking the publisher.
func (h *Hub) Publish(sessionID, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WEBSOCKET] Failed to marshal %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[sessionID] {
		select {
		case c.send <- payload:
		default:
			log.Printf("[WEBSOCKET] Client buffer full, disconnecting: session=%s", sessionID)
			h.dropLocked(c)
		}
	}
}

// CloseSession disconnects every client watching the session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[sessionID] {
		h.dropLocked(c)
	}
}

// Watchers returns how many clients watch the session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
