package assistant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	assistantModel "github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// Handler serves the assistant catalog.
type Handler struct {
	assistants assistantModel.Store
}

// New creates an assistant handler.
func New(assistants assistantModel.Store) *Handler {
	return &Handler{assistants: assistants}
}

// RegisterRoutes registers assistant routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistants", h.handleList)
	r.Get("/assistants/{assistantID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.assistants.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "assistantID")

	item, ok := h.assistants.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "assistant not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, item)
}
