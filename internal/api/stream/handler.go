package stream

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Serve upgrades the request and streams the session's events until either
// side closes. initial, when non-nil, is queued before any published event.
// alive, when non-nil, is checked once the client is registered; a session
// that ended meanwhile gets its connection closed right away.
func (h *Hub) Serve(
	w http.ResponseWriter,
	r *http.Request,
	sessionID string,
	checkOrigin func(*http.Request) bool,
	initial *Event,
	alive func() bool,
) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.Printf("[WEBSOCKET] upgrade failed: session=%s err=%v", sessionID, err)
		return
	}

	c := newClient(sessionID, conn, h)
	if initial != nil {
		if payload, err := json.Marshal(initial); err == nil {
			c.send <- payload
		}
	}
	if !h.registerIfLive(c, alive) {
		log.Printf("[WEBSOCKET] session closed before stream attached: session=%s", sessionID)
	}

	go c.writePump()
	c.readPump()
}
