package gamification

import "time"

// LevelDivisor converts cumulative experience into a level:
// level = experience/LevelDivisor + 1.
const LevelDivisor = 1000

// UserState is the per-user engagement state. It is mutated only through
// the user store's AddExperience, which applies additively and atomically.
type UserState struct {
	UserID      string `json:"userId"`
	Experience  int    `json:"experience"`
	TotalPoints int    `json:"totalPoints"`
	Level       int    `json:"level"`
}

// LevelFor derives the level for a given experience total.
func LevelFor(experience int) int {
	return experience/LevelDivisor + 1
}

// Stats is the snapshot achievements are evaluated against.
type Stats struct {
	MessageCount  int `json:"messageCount"`
	AnalysisCount int `json:"analysisCount"`
	MemoryCount   int `json:"memoryCount"`
	Level         int `json:"level"`
	Experience    int `json:"experience"`
}

// Achievement is one entry of the fixed unlockable catalog. Unlocks is the
// predicate tested against a stats snapshot; inactive achievements are never
// evaluated.
type Achievement struct {
	ID          string           `json:"id"`
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Category    string           `json:"category"`
	Points      int              `json:"points"`
	Active      bool             `json:"active"`
	Unlocks     func(Stats) bool `json:"-"`
}

// UserAchievement grants one achievement to one user. The (user, achievement)
// pair is unique; granting is idempotent.
type UserAchievement struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	EarnedAt      time.Time `json:"earnedAt"`
}
