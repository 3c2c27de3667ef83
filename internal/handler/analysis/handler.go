package analysis

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/internal/store"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// Handler serves analysis triggering and retrieval endpoints.
type Handler struct {
	analyses store.AnalysisStore
	chats    store.ChatStore
	bus      *event.Bus
	active   bool
}

// New creates an analysis handler. When active is false no pipeline consumes
// trigger events and the trigger endpoint refuses requests instead of
// queueing work that would silently vanish.
func New(analyses store.AnalysisStore, chats store.ChatStore, bus *event.Bus, active bool) *Handler {
	return &Handler{
		analyses: analyses,
		chats:    chats,
		bus:      bus,
		active:   active,
	}
}

// RegisterRoutes registers analysis routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analysis/{id}", h.handleTrigger)
	r.Get("/analysis/{id}", h.handleGetAnalysis)
}

// handleTrigger requests an analysis run for a session. The run itself is
// asynchronous; results arrive on the notification stream.
func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.active {
		utils.RespondError(w, http.StatusServiceUnavailable, "analysis is unavailable, AI provider not configured")
		return
	}

	sessionID := chi.URLParam(r, "id")

	if _, err := h.chats.FindSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	h.bus.Publish(event.AnalysisTrigger, event.TriggerPayload{SessionID: sessionID})

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status":    "queued",
		"sessionId": sessionID,
	})
}

// handleGetAnalysis returns a stored analysis result by ID.
func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID := chi.URLParam(r, "id")

	result, err := h.analyses.FindAnalysis(r.Context(), analysisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "analysis not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}
