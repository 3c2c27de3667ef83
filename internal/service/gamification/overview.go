package gamification

import (
	"context"
	"fmt"

	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
)

// LevelProgress describes how far a user is into their current level.
type LevelProgress struct {
	CurrentLevel    int     `json:"currentLevel"`
	ProgressToNext  int     `json:"progressToNext"`
	ExpToNextLevel  int     `json:"expToNextLevel"`
	ProgressPercent float64 `json:"progressPercent"`
}

// Overview is the user-facing gamification summary.
type Overview struct {
	State        gamification.UserState         `json:"state"`
	Stats        gamification.Stats             `json:"stats"`
	Progress     LevelProgress                  `json:"progress"`
	Achievements []gamification.UserAchievement `json:"achievements"`
	Unlocked     int                            `json:"unlocked"`
	Available    int                            `json:"available"`
}

// Snapshot assembles the overview for a user.
func (s *Service) Snapshot(ctx context.Context, userID string) (Overview, error) {
	stats, err := s.statsSnapshot(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to build stats: %w", err)
	}
	state, err := s.users.GetState(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to load state: %w", err)
	}
	unlocked, err := s.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to list achievements: %w", err)
	}
	active, err := s.achievements.ListActive(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to list catalog: %w", err)
	}

	return Overview{
		State:        state,
		Stats:        stats,
		Progress:     levelProgress(state.Experience),
		Achievements: unlocked,
		Unlocked:     len(unlocked),
		Available:    len(active),
	}, nil
}

const defaultLeaderboardSize = 10

// Leaderboard returns the top users ranked by level, then total points.
// A non-positive limit falls back to the default size.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]gamification.UserState, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	top, err := s.users.TopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return top, nil
}

// Definitions returns the complete achievement catalog, inactive and
// not-yet-unlocked entries included.
func (s *Service) Definitions() []gamification.Achievement {
	return Catalog()
}

func levelProgress(experience int) LevelProgress {
	level := gamification.LevelFor(experience)
	intoLevel := experience - (level-1)*gamification.LevelDivisor
	percent := float64(intoLevel) / float64(gamification.LevelDivisor) * 100
	if percent > 100 {
		percent = 100
	}
	return LevelProgress{
		CurrentLevel:    level,
		ProgressToNext:  intoLevel,
		ExpToNextLevel:  level*gamification.LevelDivisor - experience,
		ProgressPercent: percent,
	}
}
