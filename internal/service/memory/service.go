// Package memory manages durable insights: explicit user saves and automatic
// capture from completed analyses.
package memory

import (
	"context"
	"fmt"
	"log"

	analysismodel "github.com/mindfulhq/mindful/backend/internal/model/analysis"
	memorymodel "github.com/mindfulhq/mindful/backend/internal/model/memory"
	"github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

const (
	defaultEntryType  = "insight"
	defaultImportance = 3
	titlePreviewLen   = 50
)

// Service wraps the memory store with defaults and the insight-saved reward.
type Service struct {
	entries store.MemoryStore
	rewards *gamification.Service
}

// NewService wires the memory service. rewards may be nil.
func NewService(entries store.MemoryStore, rewards *gamification.Service) *Service {
	return &Service{entries: entries, rewards: rewards}
}

// Save stores an explicit user entry and requests the insight-saved award.
// Award failures are logged and never fail the save.
func (s *Service) Save(ctx context.Context, userID string, e memorymodel.Entry) (memorymodel.Entry, error) {
	e.UserID = userID
	if e.Type == "" {
		e.Type = defaultEntryType
	}
	if e.Importance == 0 {
		e.Importance = defaultImportance
	}
	if e.SourceType == "" {
		e.SourceType = memorymodel.SourceManual
	}

	saved, err := s.entries.CreateEntry(ctx, e)
	if err != nil {
		return memorymodel.Entry{}, fmt.Errorf("failed to save memory entry: %w", err)
	}

	if s.rewards != nil {
		if _, err := s.rewards.AwardPoints(ctx, userID, gamification.ActionInsightSaved, map[string]any{
			"entryId": saved.ID,
		}); err != nil {
			log.Printf("[memory] insight reward failed for user=%s: %v", userID, err)
		}
	}
	return saved, nil
}

// AutoCapture converts a completed analysis' insights into memory entries
// bound to the originating session. Returns how many entries were created.
func (s *Service) AutoCapture(ctx context.Context, userID, sessionID string, result analysismodel.Result) (int, error) {
	if len(result.Insights) == 0 {
		return 0, nil
	}

	tag := result.Strategy
	if tag == "" {
		tag = "auto-generated"
	}

	entries := make([]memorymodel.Entry, 0, len(result.Insights))
	for _, insight := range result.Insights {
		entries = append(entries, memorymodel.Entry{
			Title:      "Insight: " + preview(insight),
			Content:    insight,
			Type:       defaultEntryType,
			Tags:       []string{tag},
			Importance: defaultImportance,
		})
	}

	created, err := s.entries.BulkCreateFromChat(ctx, userID, sessionID, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to capture insights: %w", err)
	}
	return len(created), nil
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]memorymodel.Entry, error) {
	return s.entries.ListByUser(ctx, userID, limit)
}

// Search matches entries against a free-text query.
func (s *Service) Search(ctx context.Context, userID, query string) ([]memorymodel.Entry, error) {
	return s.entries.SearchByUser(ctx, userID, query)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= titlePreviewLen {
		return text
	}
	return string(runes[:titlePreviewLen]) + "..."
}
