package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	analysisHandler "github.com/mindfulhq/mindful/backend/internal/handler/analysis"
	assistantHandler "github.com/mindfulhq/mindful/backend/internal/handler/assistant"
	chatHandler "github.com/mindfulhq/mindful/backend/internal/handler/chat"
	memoryHandler "github.com/mindfulhq/mindful/backend/internal/handler/memory"
	streamHandler "github.com/mindfulhq/mindful/backend/internal/handler/stream"
	userHandler "github.com/mindfulhq/mindful/backend/internal/handler/user"
	"github.com/mindfulhq/mindful/backend/internal/event"
	middlewarePkg "github.com/mindfulhq/mindful/backend/internal/middleware"
	assistantModel "github.com/mindfulhq/mindful/backend/internal/model/assistant"
	chatService "github.com/mindfulhq/mindful/backend/internal/service/chat"
	gamificationService "github.com/mindfulhq/mindful/backend/internal/service/gamification"
	memoryService "github.com/mindfulhq/mindful/backend/internal/service/memory"
	"github.com/mindfulhq/mindful/backend/internal/store"
	"github.com/mindfulhq/mindful/backend/pkg/utils"
)

// Deps collects everything the HTTP layer serves.
type Deps struct {
	Store        store.Store
	Assistants   assistantModel.Store
	Bus          *event.Bus
	ChatSvc      *chatService.Service
	MemorySvc    *memoryService.Service
	Rewards      *gamificationService.Service
	PingInterval time.Duration
	// AnalysisActive reports whether the analysis pipeline is attached;
	// without it the trigger endpoint answers 503.
	AnalysisActive bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(deps.ChatSvc).RegisterRoutes(api)
		assistantHandler.New(deps.Assistants).RegisterRoutes(api)
		memoryHandler.New(deps.MemorySvc).RegisterRoutes(api)
		userHandler.New(deps.Rewards).RegisterRoutes(api)

		streamHandler.New(deps.Bus, deps.PingInterval).RegisterRoutes(api)
		analysisHandler.New(deps.Store, deps.Store, deps.Bus, deps.AnalysisActive).RegisterRoutes(api)
	})

	return r
}
