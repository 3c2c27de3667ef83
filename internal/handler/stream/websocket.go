package stream

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleWebSocket streams the same analysis notifications as the SSE
// endpoint over a WebSocket connection. The reader loop exists only to
// detect the client going away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[stream] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[stream] websocket connected for session=%s", sessionID)

	events, teardown := h.subscribe(sessionID)
	defer teardown()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Printf("[stream] websocket read error: %v", err)
				}
				return
			}
		}
	}()

	if err := conn.WriteJSON(Notification{
		Type:      "connected",
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("[stream] websocket write failed: %v", err)
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[stream] websocket closed for session=%s", sessionID)
			return
		case n := <-events:
			if err := conn.WriteJSON(n); err != nil {
				log.Printf("[stream] websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Printf("[stream] websocket ping failed: %v", err)
				return
			}
		}
	}
}
