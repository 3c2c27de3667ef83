// Package store defines the persistence contracts the core services consume.
// Two implementations exist: memstore (in-memory, used in tests and
// credential-less runs) and sqlite (durable, modernc.org/sqlite).
package store

import (
	"context"
	"errors"

	"github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
	"github.com/mindfulhq/mindful/backend/internal/model/memory"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ChatStore persists sessions and their ordered message history.
type ChatStore interface {
	CreateSession(ctx context.Context, s chat.Session) (chat.Session, error)
	FindSession(ctx context.Context, id string) (chat.Session, error)
	FindSessionWithMessages(ctx context.Context, id string) (chat.SessionWithMessages, error)
	SessionsByUser(ctx context.Context, userID string) ([]chat.Session, error)
	// AddMessage stores m as-is; the caller assigns Order.
	AddMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	// MessageCount counts all messages in a session.
	MessageCount(ctx context.Context, sessionID string) (int, error)
	// UserMessageCount counts user-role messages in a session.
	UserMessageCount(ctx context.Context, sessionID string) (int, error)
	// UserMessageTotal counts all messages across every session owned by a user.
	UserMessageTotal(ctx context.Context, userID string) (int, error)
}

// AnalysisStore persists completed analysis results.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, r analysis.Result) (analysis.Result, error)
	FindAnalysis(ctx context.Context, id string) (analysis.Result, error)
	// AnalysisCountByUser counts results across every session owned by a user.
	AnalysisCountByUser(ctx context.Context, userID string) (int, error)
}

// MemoryStore persists durable insights.
type MemoryStore interface {
	CreateEntry(ctx context.Context, e memory.Entry) (memory.Entry, error)
	// BulkCreateFromChat stores auto-captured insights; a failing entry is
	// skipped, not fatal. Returns the entries actually created.
	BulkCreateFromChat(ctx context.Context, userID, sessionID string, entries []memory.Entry) ([]memory.Entry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]memory.Entry, error)
	SearchByUser(ctx context.Context, userID, query string) ([]memory.Entry, error)
	MemoryCountByUser(ctx context.Context, userID string) (int, error)
}

// ExperienceResult reports the outcome of one additive experience update.
type ExperienceResult struct {
	State         gamification.UserState
	LeveledUp     bool
	PreviousLevel int
	NewLevel      int
}

// UserStore persists per-user engagement state. Unknown users are created on
// first access.
type UserStore interface {
	GetState(ctx context.Context, userID string) (gamification.UserState, error)
	// AddExperience applies points to experience and total points and
	// recomputes the level. The read-modify-write is atomic: concurrent
	// awards for the same user never lose updates.
	AddExperience(ctx context.Context, userID string, points int) (ExperienceResult, error)
	// TopUsers returns up to limit users ranked by level, then total points.
	TopUsers(ctx context.Context, limit int) ([]gamification.UserState, error)
}

// AchievementStore tracks the achievement catalog and per-user unlocks.
type AchievementStore interface {
	ListActive(ctx context.Context) ([]gamification.Achievement, error)
	// UnlockedKeys returns the catalog keys already unlocked by a user.
	UnlockedKeys(ctx context.Context, userID string) (map[string]bool, error)
	// RecordUnlock grants an achievement. It is idempotent: a duplicate grant
	// reports created == false and no error.
	RecordUnlock(ctx context.Context, userID, achievementID string) (created bool, err error)
	ListUnlocked(ctx context.Context, userID string) ([]gamification.UserAchievement, error)
}

// Store aggregates every persistence contract plus lifecycle management.
type Store interface {
	ChatStore
	AnalysisStore
	MemoryStore
	UserStore
	AchievementStore
	Close() error
}
