package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mindfulhq/mindful/backend/internal/config"
	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/internal/handler"
	assistantModel "github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
	analysisService "github.com/mindfulhq/mindful/backend/internal/service/analysis"
	chatService "github.com/mindfulhq/mindful/backend/internal/service/chat"
	gamificationService "github.com/mindfulhq/mindful/backend/internal/service/gamification"
	memoryService "github.com/mindfulhq/mindful/backend/internal/service/memory"
	"github.com/mindfulhq/mindful/backend/internal/service/pipeline"
	"github.com/mindfulhq/mindful/backend/internal/store"
	"github.com/mindfulhq/mindful/backend/internal/store/memstore"
	"github.com/mindfulhq/mindful/backend/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	assistants := assistantModel.NewMemoryStore(assistantModel.Seed())
	bus := event.NewBus()

	// Initialize the AI provider when credentials are present. Without it
	// the API still serves chats; replies and analyses are skipped.
	var provider *ai.Provider
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			provider, err = ai.NewProvider(ctx, chatModel, cfg.AI.Model, ai.Config{
				MaxAttempts:  cfg.AI.MaxAttempts,
				HistoryLimit: cfg.AI.HistoryLimit,
			})
			if err != nil {
				log.Printf("warning: failed to initialize AI provider: %v", err)
			} else {
				log.Println("AI provider initialized successfully")
			}
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	rewards := gamificationService.NewService(st, st, st, st, st, bus)
	memorySvc := memoryService.NewService(st, rewards)
	chatSvc := chatService.NewService(st, assistants, provider, rewards, bus)

	var analyzer *analysisService.Service
	if provider != nil {
		analyzer = analysisService.NewService(provider, st, st, assistants, rewards)
		pipe := pipeline.Attach(bus, analyzer, memorySvc, st)
		defer pipe.Detach()
	} else {
		log.Println("analysis pipeline disabled, no AI provider")
	}

	router := handler.NewRouter(handler.Deps{
		Store:          st,
		Assistants:     assistants,
		Bus:            bus,
		ChatSvc:        chatSvc,
		MemorySvc:      memorySvc,
		Rewards:        rewards,
		PingInterval:   cfg.Stream.PingInterval,
		AnalysisActive: analyzer != nil,
	})

	startServer(ctx, cfg.Server, router)
}

// openStore selects SQLite when DATABASE_PATH is set, in-memory otherwise.
func openStore(cfg config.StoreConfig) (store.Store, error) {
	catalog := gamificationService.Catalog()
	if cfg.DatabasePath == "" {
		log.Println("DATABASE_PATH not set, using in-memory store")
		return memstore.New(catalog), nil
	}
	log.Printf("opening sqlite store at %s", cfg.DatabasePath)
	return sqlite.Open(cfg.DatabasePath, catalog)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Mindful backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
