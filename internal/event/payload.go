package event

import (
	"time"

	"github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
)

// TriggerPayload requests an analysis run for a session.
type TriggerPayload struct {
	SessionID string
}

// CompletedPayload announces a persisted analysis.
type CompletedPayload struct {
	SessionID  string
	AnalysisID string
	Result     analysis.Result
}

// FailedPayload announces a failed analysis run.
type FailedPayload struct {
	SessionID string
	Err       error
}

// PointsEarnedPayload reports a successful point award.
type PointsEarnedPayload struct {
	UserID      string
	Action      string
	Points      int
	TotalPoints int
	Experience  int
	Level       int
	LeveledUp   bool
	Metadata    map[string]any
}

// LevelUpPayload reports a level increase.
type LevelUpPayload struct {
	UserID        string
	PreviousLevel int
	NewLevel      int
	TotalPoints   int
}

// AchievementEarnedPayload reports a newly unlocked achievement.
type AchievementEarnedPayload struct {
	UserID      string
	Achievement gamification.Achievement
	EarnedAt    time.Time
}
