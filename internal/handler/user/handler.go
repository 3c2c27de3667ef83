package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	gamificationModel "github.com/mindfulhq/mindful/backend/internal/model/gamification"
	gamificationService "github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// Handler serves engagement endpoints: user stats, the achievement catalog
// and the leaderboard.
type Handler struct {
	rewards *gamificationService.Service
}

// New creates a user handler.
func New(rewards *gamificationService.Service) *Handler {
	return &Handler{rewards: rewards}
}

// RegisterRoutes registers user routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/user/stats", h.handleStats)
	r.Get("/achievements", h.handleAchievements)
	r.Get("/leaderboard", h.handleLeaderboard)
}

// handleStats returns the caller's points, level progress, activity counters
// and unlocked achievements.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	overview, err := h.rewards.Snapshot(r.Context(), utils.UserID(r))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load user stats")
		return
	}

	utils.RespondJSON(w, http.StatusOK, overview)
}

// handleAchievements returns the full achievement catalog, locked
// definitions included.
func (h *Handler) handleAchievements(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.rewards.Definitions())
}

// handleLeaderboard returns the top users by level and points. The optional
// limit query parameter caps the result size.
func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	top, err := h.rewards.Leaderboard(r.Context(), limit)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if top == nil {
		top = []gamificationModel.UserState{}
	}

	utils.RespondJSON(w, http.StatusOK, top)
}
