package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	analysismodel "github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
	"github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

var (
	// ErrSessionNotFound reports that the session to analyze does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStrategyNotFound reports a configuration error: no strategy is
	// registered for the assistant's analysis style. Never retried.
	ErrStrategyNotFound = errors.New("analysis strategy not found")
)

// Service orchestrates one analysis run: load dialogue, select a strategy by
// assistant style, call the reasoning provider, normalize, persist. Exactly
// one terminal outcome per invocation; nothing intermediate is persisted.
type Service struct {
	provider   *ai.Provider
	chats      store.ChatStore
	analyses   store.AnalysisStore
	assistants assistant.Store
	strategies map[string]Strategy
	rewards    *gamification.Service
}

// NewService wires the orchestrator. rewards may be nil; point awards are a
// best-effort side path either way.
func NewService(provider *ai.Provider, chats store.ChatStore, analyses store.AnalysisStore, assistants assistant.Store, rewards *gamification.Service) *Service {
	return &Service{
		provider:   provider,
		chats:      chats,
		analyses:   analyses,
		assistants: assistants,
		strategies: DefaultStrategies(),
		rewards:    rewards,
	}
}

// Analyze runs the full analysis pipeline for a session and persists the
// result.
func (s *Service) Analyze(ctx context.Context, sessionID string) (analysismodel.Result, error) {
	session, err := s.chats.FindSessionWithMessages(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return analysismodel.Result{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return analysismodel.Result{}, fmt.Errorf("failed to load session: %w", err)
	}

	persona, ok := s.assistants.FindByID(session.AssistantType)
	if !ok {
		return analysismodel.Result{}, fmt.Errorf("%w: unknown assistant %q", ErrStrategyNotFound, session.AssistantType)
	}
	strategy, ok := s.strategies[persona.AnalysisStyle]
	if !ok {
		return analysismodel.Result{}, fmt.Errorf("%w: style %q", ErrStrategyNotFound, persona.AnalysisStyle)
	}

	prompt := strategy.BuildPrompt(session.Messages, persona.Prompt)
	raw, err := s.provider.AnalyzeDialogue(ctx, analysisSystemPrompt(persona), prompt, session.Messages)
	if err != nil {
		return analysismodel.Result{}, err
	}

	extracted := safeExtract(strategy, raw)
	result := analysismodel.Result{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		Strategy:        extracted.Strategy,
		Insights:        pick(extracted.Insights, raw.Insights),
		Emotions:        pick(extracted.Emotions, raw.Emotions),
		Patterns:        pick(extracted.Patterns, raw.Patterns),
		Recommendations: pick(extracted.Recommendations, raw.Recommendations),
		Metadata: analysismodel.Metadata{
			Model:      raw.Metadata.Model,
			Timestamp:  raw.Metadata.Timestamp,
			IsFallback: raw.Metadata.IsFallback,
			ErrorType:  raw.Metadata.ErrorType,
		},
		CreatedAt: time.Now().UTC(),
	}

	saved, err := s.analyses.CreateAnalysis(ctx, result)
	if err != nil {
		return analysismodel.Result{}, fmt.Errorf("failed to persist analysis: %w", err)
	}
	log.Printf("[analysis] persisted %s for session=%s strategy=%s insights=%d",
		saved.ID, sessionID, saved.Strategy, len(saved.Insights))

	if s.rewards != nil {
		if _, err := s.rewards.AwardPoints(ctx, session.UserID, gamification.ActionAnalysisComplete, map[string]any{
			"sessionId":  sessionID,
			"analysisId": saved.ID,
			"strategy":   saved.Strategy,
		}); err != nil {
			log.Printf("[analysis] analysis reward failed for user=%s: %v", session.UserID, err)
		}
	}

	return saved, nil
}

func analysisSystemPrompt(persona assistant.Assistant) string {
	return persona.Prompt + "\n\nYour task: analyze the dialogue and return structured insights as JSON only, with no additional text."
}
