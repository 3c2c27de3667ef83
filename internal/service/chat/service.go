// Package chat handles session creation and message ingestion, including the
// analysis cadence trigger and the live assistant reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	chatmodel "github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
	"github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrInvalidRole       = errors.New("invalid message role")
)

// Every analysisCadence user messages, an analysis trigger fires.
const analysisCadence = 5

// apologyReply substitutes for the assistant when the provider is down.
const apologyReply = "Sorry, something went wrong while generating a response. Please try again."

// Service encapsulates conversation state management and the ingestion
// pipeline.
type Service struct {
	chats      store.ChatStore
	assistants assistant.Store
	provider   *ai.Provider
	rewards    *gamification.Service
	bus        *event.Bus
	guard      triggerGuard
}

// NewService wires the chat service. provider and rewards may be nil: without
// a provider no assistant replies are generated, without rewards no points
// are awarded. Ingestion works either way.
func NewService(chats store.ChatStore, assistants assistant.Store, provider *ai.Provider, rewards *gamification.Service, bus *event.Bus) *Service {
	return &Service{
		chats:      chats,
		assistants: assistants,
		provider:   provider,
		rewards:    rewards,
		bus:        bus,
		guard:      triggerGuard{last: make(map[string]int)},
	}
}

// CreateSession provisions a session bound to an assistant.
func (s *Service) CreateSession(ctx context.Context, userID, assistantType, title string) (chatmodel.Session, error) {
	if _, ok := s.assistants.FindByID(assistantType); !ok {
		return chatmodel.Session{}, fmt.Errorf("%w: %q", ErrAssistantNotFound, assistantType)
	}
	if title == "" {
		title = "New chat"
	}
	return s.chats.CreateSession(ctx, chatmodel.Session{
		UserID:        userID,
		AssistantType: assistantType,
		Title:         title,
	})
}

// GetSession retrieves a session with its full history.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chatmodel.SessionWithMessages, error) {
	out, err := s.chats.FindSessionWithMessages(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return chatmodel.SessionWithMessages{}, ErrSessionNotFound
	}
	return out, err
}

// ListSessions returns a user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]chatmodel.Session, error) {
	return s.chats.SessionsByUser(ctx, userID)
}

// Ingest appends a message with the next order number. For user messages it
// additionally generates the assistant reply, requests the message reward,
// and fires the analysis trigger when the user-message count reaches a
// multiple of five for the first time. Reward and reply failures never fail
// the ingestion itself.
func (s *Service) Ingest(ctx context.Context, sessionID, role, content string) (chatmodel.Message, error) {
	if role != chatmodel.RoleUser && role != chatmodel.RoleAssistant {
		return chatmodel.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	session, err := s.chats.FindSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return chatmodel.Message{}, ErrSessionNotFound
	}
	if err != nil {
		return chatmodel.Message{}, fmt.Errorf("failed to load session: %w", err)
	}

	saved, err := s.appendMessage(ctx, sessionID, role, content)
	if err != nil {
		return chatmodel.Message{}, err
	}
	if role != chatmodel.RoleUser {
		return saved, nil
	}

	s.generateReply(ctx, session, content)

	if s.rewards != nil {
		if _, err := s.rewards.AwardPoints(ctx, session.UserID, gamification.ActionMessage, map[string]any{
			"sessionId": sessionID,
			"messageId": saved.ID,
		}); err != nil {
			log.Printf("[chat] message reward failed for user=%s: %v", session.UserID, err)
		}
	}

	s.maybeTrigger(ctx, sessionID)
	return saved, nil
}

func (s *Service) appendMessage(ctx context.Context, sessionID, role, content string) (chatmodel.Message, error) {
	count, err := s.chats.MessageCount(ctx, sessionID)
	if err != nil {
		return chatmodel.Message{}, fmt.Errorf("failed to count messages: %w", err)
	}
	saved, err := s.chats.AddMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Order:     count + 1,
	})
	if err != nil {
		return chatmodel.Message{}, fmt.Errorf("failed to save message: %w", err)
	}
	return saved, nil
}

// generateReply produces and stores the assistant's answer. Provider outages
// yield the apology line instead of an error; storage failures are logged.
func (s *Service) generateReply(ctx context.Context, session chatmodel.Session, userMessage string) {
	if s.provider == nil {
		return
	}

	persona, ok := s.assistants.FindByID(session.AssistantType)
	if !ok {
		log.Printf("[chat] unknown assistant %q for session=%s, skipping reply", session.AssistantType, session.ID)
		return
	}

	history, err := s.chats.FindSessionWithMessages(ctx, session.ID)
	if err != nil {
		log.Printf("[chat] failed to load history for session=%s: %v", session.ID, err)
		return
	}

	reply, err := s.provider.GenerateReply(ctx, persona.SystemPrompt, history.Messages, userMessage)
	if err != nil {
		log.Printf("[chat] reply generation failed for session=%s: %v", session.ID, err)
		reply = apologyReply
	}

	if _, err := s.appendMessage(ctx, session.ID, chatmodel.RoleAssistant, reply); err != nil {
		log.Printf("[chat] failed to save assistant reply for session=%s: %v", session.ID, err)
	}
}

// maybeTrigger publishes the analysis trigger when the user-message count is
// a positive multiple of the cadence. The per-session guard ensures a given
// multiple fires at most once even under duplicate or concurrent ingestion.
func (s *Service) maybeTrigger(ctx context.Context, sessionID string) {
	count, err := s.chats.UserMessageCount(ctx, sessionID)
	if err != nil {
		log.Printf("[chat] failed to count user messages for session=%s: %v", sessionID, err)
		return
	}
	if count <= 0 || count%analysisCadence != 0 {
		return
	}
	if !s.guard.mark(sessionID, count) {
		return
	}
	log.Printf("[chat] analysis trigger for session=%s at %d user messages", sessionID, count)
	s.bus.Publish(event.AnalysisTrigger, event.TriggerPayload{SessionID: sessionID})
}

// triggerGuard remembers the highest user-message count that already fired a
// trigger per session. mark is a compare-and-swap: it succeeds only when
// count advances past the recorded value.
type triggerGuard struct {
	mu   sync.Mutex
	last map[string]int
}

func (g *triggerGuard) mark(sessionID string, count int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last[sessionID] >= count {
		return false
	}
	g.last[sessionID] = count
	return true
}
