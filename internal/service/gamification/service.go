// Package gamification awards points for defined actions, recomputes levels
// from cumulative experience, and unlocks achievements at most once per user.
package gamification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

// Actions that earn points.
const (
	ActionMessage          = "message"
	ActionAnalysisComplete = "analysis_complete"
	ActionInsightSaved     = "insight_saved"
)

var actionPoints = map[string]int{
	ActionMessage:          10,
	ActionAnalysisComplete: 50,
	ActionInsightSaved:     25,
}

// AwardResult reports the outcome of one point award.
type AwardResult struct {
	State         gamification.UserState `json:"state"`
	Points        int                    `json:"points"`
	LeveledUp     bool                   `json:"leveledUp"`
	PreviousLevel int                    `json:"previousLevel"`
	NewLevel      int                    `json:"newLevel"`
}

// Service is the gamification engine.
type Service struct {
	users        store.UserStore
	achievements store.AchievementStore
	chats        store.ChatStore
	analyses     store.AnalysisStore
	memories     store.MemoryStore
	bus          *event.Bus
}

// NewService wires the engine against the store contracts and the event bus.
func NewService(users store.UserStore, achievements store.AchievementStore, chats store.ChatStore, analyses store.AnalysisStore, memories store.MemoryStore, bus *event.Bus) *Service {
	return &Service{
		users:        users,
		achievements: achievements,
		chats:        chats,
		analyses:     analyses,
		memories:     memories,
		bus:          bus,
	}
}

// AwardPoints applies the point value for action to the user, publishes the
// resulting events, and evaluates achievements. Unknown actions are a no-op
// returning (nil, nil). Only storage errors propagate; the caller treats them
// as non-fatal to its own operation.
func (s *Service) AwardPoints(ctx context.Context, userID, action string, metadata map[string]any) (*AwardResult, error) {
	points, ok := actionPoints[action]
	if !ok {
		log.Printf("[gamification] unknown action %q for user=%s, ignoring", action, userID)
		return nil, nil
	}

	res, err := s.users.AddExperience(ctx, userID, points)
	if err != nil {
		return nil, fmt.Errorf("failed to add experience: %w", err)
	}

	s.bus.Publish(event.PointsEarned, event.PointsEarnedPayload{
		UserID:      userID,
		Action:      action,
		Points:      points,
		TotalPoints: res.State.TotalPoints,
		Experience:  res.State.Experience,
		Level:       res.State.Level,
		LeveledUp:   res.LeveledUp,
		Metadata:    metadata,
	})
	if res.LeveledUp {
		log.Printf("[gamification] user=%s leveled up to %d", userID, res.NewLevel)
		s.bus.Publish(event.LevelUp, event.LevelUpPayload{
			UserID:        userID,
			PreviousLevel: res.PreviousLevel,
			NewLevel:      res.NewLevel,
			TotalPoints:   res.State.TotalPoints,
		})
	}

	s.evaluateAchievements(ctx, userID)

	return &AwardResult{
		State:         res.State,
		Points:        points,
		LeveledUp:     res.LeveledUp,
		PreviousLevel: res.PreviousLevel,
		NewLevel:      res.NewLevel,
	}, nil
}

// evaluateAchievements tests every active, not-yet-unlocked achievement
// against a fresh stats snapshot. Failures are logged and swallowed: the
// award that triggered evaluation has already succeeded.
func (s *Service) evaluateAchievements(ctx context.Context, userID string) {
	stats, err := s.statsSnapshot(ctx, userID)
	if err != nil {
		log.Printf("[gamification] stats snapshot failed for user=%s: %v", userID, err)
		return
	}
	unlocked, err := s.achievements.UnlockedKeys(ctx, userID)
	if err != nil {
		log.Printf("[gamification] unlocked key lookup failed for user=%s: %v", userID, err)
		return
	}
	active, err := s.achievements.ListActive(ctx)
	if err != nil {
		log.Printf("[gamification] catalog lookup failed: %v", err)
		return
	}

	for _, a := range active {
		if unlocked[a.Key] || a.Unlocks == nil || !a.Unlocks(stats) {
			continue
		}

		created, err := s.achievements.RecordUnlock(ctx, userID, a.ID)
		if err != nil {
			log.Printf("[gamification] unlock %s failed for user=%s: %v", a.Key, userID, err)
			continue
		}
		if !created {
			// Another evaluation won the race; already unlocked.
			continue
		}

		log.Printf("[gamification] user=%s earned achievement %s", userID, a.Key)
		if _, err := s.users.AddExperience(ctx, userID, a.Points); err != nil {
			log.Printf("[gamification] achievement points for %s failed: %v", a.Key, err)
		}
		s.bus.Publish(event.AchievementEarned, event.AchievementEarnedPayload{
			UserID:      userID,
			Achievement: a,
			EarnedAt:    time.Now().UTC(),
		})
	}
}

func (s *Service) statsSnapshot(ctx context.Context, userID string) (gamification.Stats, error) {
	state, err := s.users.GetState(ctx, userID)
	if err != nil {
		return gamification.Stats{}, err
	}
	messages, err := s.chats.UserMessageTotal(ctx, userID)
	if err != nil {
		return gamification.Stats{}, err
	}
	analyses, err := s.analyses.AnalysisCountByUser(ctx, userID)
	if err != nil {
		return gamification.Stats{}, err
	}
	memories, err := s.memories.MemoryCountByUser(ctx, userID)
	if err != nil {
		return gamification.Stats{}, err
	}
	return gamification.Stats{
		MessageCount:  messages,
		AnalysisCount: analyses,
		MemoryCount:   memories,
		Level:         state.Level,
		Experience:    state.Experience,
	}, nil
}
