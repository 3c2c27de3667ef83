package memory

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	memorymodel "github.com/mindfulhq/mindful/backend/internal/model/memory"
	memoryService "github.com/mindfulhq/mindful/backend/internal/service/memory"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// Handler serves the memory entry endpoints.
type Handler struct {
	memorySvc *memoryService.Service
}

// New creates a memory handler.
func New(memorySvc *memoryService.Service) *Handler {
	return &Handler{memorySvc: memorySvc}
}

// RegisterRoutes registers memory routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/memory", h.handleSave)
	r.Get("/memory", h.handleList)
	r.Get("/memory/search", h.handleSearch)
}

// handleSave stores an insight the user chose to keep.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title      string   `json:"title"`
		Content    string   `json:"content"`
		Type       string   `json:"type"`
		Tags       []string `json:"tags"`
		SourceType string   `json:"sourceType"`
		SourceID   string   `json:"sourceId"`
		Importance int      `json:"importance"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	entry, err := h.memorySvc.Save(r.Context(), utils.UserID(r), memorymodel.Entry{
		Title:      payload.Title,
		Content:    payload.Content,
		Type:       payload.Type,
		Tags:       payload.Tags,
		SourceType: payload.SourceType,
		SourceID:   payload.SourceID,
		Importance: payload.Importance,
	})
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to save memory entry")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, entry)
}

// handleList returns the caller's entries, newest first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.memorySvc.List(r.Context(), utils.UserID(r), limit)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list memory entries")
		return
	}
	if entries == nil {
		entries = []memorymodel.Entry{}
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}

// handleSearch returns entries matching the query in title, content or tags.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		utils.RespondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	entries, err := h.memorySvc.Search(r.Context(), utils.UserID(r), query)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to search memory entries")
		return
	}
	if entries == nil {
		entries = []memorymodel.Entry{}
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}
