package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// eventBuffer bounds the per-connection relay queue. A client that cannot
// keep up loses events instead of blocking the bus dispatcher.
const eventBuffer = 16

// Notification is the wire format for analysis lifecycle events.
type Notification struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	AnalysisID string `json:"analysisId,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Handler relays analysis lifecycle events from the bus to connected
// clients, over SSE or WebSocket.
type Handler struct {
	bus          *event.Bus
	pingInterval time.Duration
}

// New creates a stream handler. pingInterval <= 0 selects the 30s default.
func New(bus *event.Bus, pingInterval time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Handler{bus: bus, pingInterval: pingInterval}
}

// RegisterRoutes registers the notification stream routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analysis/stream/{sessionID}", h.HandleSSE)
	r.Get("/analysis/ws/{sessionID}", h.HandleWebSocket)
}

// subscribe attaches bus handlers that relay completed and failed events for
// one session into a buffered channel. The returned teardown removes both
// subscriptions.
func (h *Handler) subscribe(sessionID string) (<-chan Notification, func()) {
	events := make(chan Notification, eventBuffer)

	push := func(n Notification) {
		select {
		case events <- n:
		default:
			log.Printf("[stream] dropping %s event for session=%s, client too slow", n.Type, sessionID)
		}
	}

	completed := h.bus.Subscribe(event.AnalysisCompleted, func(payload any) {
		p, ok := payload.(event.CompletedPayload)
		if !ok || p.SessionID != sessionID {
			return
		}
		push(Notification{
			Type:       "analysis:completed",
			SessionID:  p.SessionID,
			AnalysisID: p.AnalysisID,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
	})

	failed := h.bus.Subscribe(event.AnalysisFailed, func(payload any) {
		p, ok := payload.(event.FailedPayload)
		if !ok || p.SessionID != sessionID {
			return
		}
		errMsg := "analysis failed"
		if p.Err != nil {
			errMsg = p.Err.Error()
		}
		push(Notification{
			Type:      "analysis:failed",
			SessionID: p.SessionID,
			Error:     errMsg,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	teardown := func() {
		h.bus.Unsubscribe(completed)
		h.bus.Unsubscribe(failed)
	}
	return events, teardown
}

// HandleSSE streams analysis notifications for one session over
// Server-Sent Events until the client disconnects.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	events, teardown := h.subscribe(sessionID)
	defer teardown()

	ctx := r.Context()
	log.Printf("[stream] sse connected for session=%s", sessionID)

	utils.SendSSEChunk(w, flusher, Notification{
		Type:      "connected",
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[stream] sse closed for session=%s", sessionID)
			return
		case n := <-events:
			utils.SendSSEChunk(w, flusher, n)
		case <-ticker.C:
			utils.SendSSEChunk(w, flusher, Notification{
				Type:      "ping",
				SessionID: sessionID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}
