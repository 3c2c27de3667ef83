// Package sqlite is the durable store implementation backed by
// modernc.org/sqlite. The schema is created on open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
	"github.com/mindfulhq/mindful/backend/internal/model/memory"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	assistant_type TEXT NOT NULL,
	title          TEXT NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	msg_order  INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, msg_order);
CREATE TABLE IF NOT EXISTS analyses (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	strategy        TEXT NOT NULL,
	insights        TEXT NOT NULL,
	emotions        TEXT NOT NULL,
	patterns        TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	metadata        TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS memory_entries (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	type        TEXT NOT NULL,
	tags        TEXT NOT NULL,
	source_type TEXT,
	source_id   TEXT,
	importance  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	experience   INTEGER NOT NULL DEFAULT 0,
	total_points INTEGER NOT NULL DEFAULT 0,
	level        INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS user_achievements (
	user_id        TEXT NOT NULL,
	achievement_id TEXT NOT NULL,
	earned_at      INTEGER NOT NULL,
	PRIMARY KEY (user_id, achievement_id)
);
`

// Store persists everything in a sqlite database file. The achievement
// catalog (including predicates) lives in process; only unlock rows are
// stored.
type Store struct {
	db      *sql.DB
	catalog []gamification.Achievement

	// expMu serializes AddExperience so the read-modify-write inside its
	// transaction cannot interleave for the same database.
	expMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string, catalog []gamification.Achievement) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, catalog: append([]gamification.Achievement(nil), catalog...)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess chat.Session) (chat.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, assistant_type, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.AssistantType, sess.Title, sess.CreatedAt.Unix(),
	)
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// FindSession retrieves a session by identifier.
func (s *Store) FindSession(ctx context.Context, id string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, assistant_type, title, created_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (chat.Session, error) {
	var sess chat.Session
	var created int64
	err := row.Scan(&sess.ID, &sess.UserID, &sess.AssistantType, &sess.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, store.ErrNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.CreatedAt = time.Unix(created, 0).UTC()
	return sess, nil
}

// FindSessionWithMessages retrieves a session plus its ordered history.
func (s *Store) FindSessionWithMessages(ctx context.Context, id string) (chat.SessionWithMessages, error) {
	sess, err := s.FindSession(ctx, id)
	if err != nil {
		return chat.SessionWithMessages{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, msg_order, created_at FROM messages
		 WHERE session_id = ? ORDER BY msg_order ASC`, id)
	if err != nil {
		return chat.SessionWithMessages{}, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	out := chat.SessionWithMessages{Session: sess}
	for rows.Next() {
		var m chat.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Order, &created); err != nil {
			return chat.SessionWithMessages{}, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		out.Messages = append(out.Messages, m)
	}
	return out, rows.Err()
}

// SessionsByUser lists a user's sessions, newest first.
func (s *Store) SessionsByUser(ctx context.Context, userID string) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, assistant_type, title, created_at FROM sessions
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []chat.Session
	for rows.Next() {
		var sess chat.Session
		var created int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.AssistantType, &sess.Title, &created); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AddMessage appends a message; the session must exist.
func (s *Store) AddMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if _, err := s.FindSession(ctx, m.SessionID); err != nil {
		return chat.Message{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, msg_order, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Role, m.Content, m.Order, m.CreatedAt.Unix(),
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to add message: %w", err)
	}
	return m, nil
}

// MessageCount counts all messages in a session.
func (s *Store) MessageCount(ctx context.Context, sessionID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID)
}

// UserMessageCount counts user-role messages in a session.
func (s *Store) UserMessageCount(ctx context.Context, sessionID string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ? AND role = ?`, sessionID, chat.RoleUser)
}

// UserMessageTotal counts all messages across a user's sessions.
func (s *Store) UserMessageTotal(ctx context.Context, userID string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM messages m JOIN sessions s ON s.id = m.session_id WHERE s.user_id = ?`, userID)
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

// CreateAnalysis stores a completed result.
func (s *Store) CreateAnalysis(ctx context.Context, r analysis.Result) (analysis.Result, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, session_id, strategy, insights, emotions, patterns, recommendations, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Strategy,
		encodeStrings(r.Insights), encodeStrings(r.Emotions),
		encodeStrings(r.Patterns), encodeStrings(r.Recommendations),
		string(meta), r.CreatedAt.Unix(),
	)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("failed to create analysis: %w", err)
	}
	return r, nil
}

// FindAnalysis retrieves a result by identifier.
func (s *Store) FindAnalysis(ctx context.Context, id string) (analysis.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, strategy, insights, emotions, patterns, recommendations, metadata, created_at
		 FROM analyses WHERE id = ?`, id)

	var r analysis.Result
	var insights, emotions, patterns, recommendations, meta string
	var created int64
	err := row.Scan(&r.ID, &r.SessionID, &r.Strategy, &insights, &emotions, &patterns, &recommendations, &meta, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Result{}, store.ErrNotFound
	}
	if err != nil {
		return analysis.Result{}, fmt.Errorf("failed to scan analysis: %w", err)
	}
	r.Insights = decodeStrings(insights)
	r.Emotions = decodeStrings(emotions)
	r.Patterns = decodeStrings(patterns)
	r.Recommendations = decodeStrings(recommendations)
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return analysis.Result{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	return r, nil
}

// AnalysisCountByUser counts results across a user's sessions.
func (s *Store) AnalysisCountByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM analyses a JOIN sessions s ON s.id = a.session_id WHERE s.user_id = ?`, userID)
}

// CreateEntry stores a memory entry.
func (s *Store) CreateEntry(ctx context.Context, e memory.Entry) (memory.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (id, user_id, title, content, type, tags, source_type, source_id, importance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Content, e.Type, encodeStrings(e.Tags),
		e.SourceType, e.SourceID, e.Importance, e.CreatedAt.Unix(),
	)
	if err != nil {
		return memory.Entry{}, fmt.Errorf("failed to create memory entry: %w", err)
	}
	return e, nil
}

// BulkCreateFromChat stores auto-captured insights; failing entries are
// skipped.
func (s *Store) BulkCreateFromChat(ctx context.Context, userID, sessionID string, entries []memory.Entry) ([]memory.Entry, error) {
	created := make([]memory.Entry, 0, len(entries))
	for _, e := range entries {
		e.UserID = userID
		e.SourceType = memory.SourceChat
		e.SourceID = sessionID
		saved, err := s.CreateEntry(ctx, e)
		if err != nil {
			continue
		}
		created = append(created, saved)
	}
	return created, nil
}

// ListByUser lists a user's entries, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]memory.Entry, error) {
	query := `SELECT id, user_id, title, content, type, tags, source_type, source_id, importance, created_at
		 FROM memory_entries WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEntries(ctx, query, args...)
}

// SearchByUser matches the query against title, content and tags.
func (s *Store) SearchByUser(ctx context.Context, userID, query string) ([]memory.Entry, error) {
	needle := "%" + strings.TrimSpace(query) + "%"
	return s.queryEntries(ctx,
		`SELECT id, user_id, title, content, type, tags, source_type, source_id, importance, created_at
		 FROM memory_entries
		 WHERE user_id = ? AND (title LIKE ? OR content LIKE ? OR tags LIKE ?)
		 ORDER BY created_at DESC`,
		userID, needle, needle, needle)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]memory.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory entries: %w", err)
	}
	defer rows.Close()

	var out []memory.Entry
	for rows.Next() {
		var e memory.Entry
		var tags string
		var created int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Type, &tags,
			&e.SourceType, &e.SourceID, &e.Importance, &created); err != nil {
			return nil, fmt.Errorf("failed to scan memory entry: %w", err)
		}
		e.Tags = decodeStrings(tags)
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryCountByUser counts a user's entries.
func (s *Store) MemoryCountByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM memory_entries WHERE user_id = ?`, userID)
}

// GetState returns the user's engagement state, creating the row on first
// access.
func (s *Store) GetState(ctx context.Context, userID string) (gamification.UserState, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id) VALUES (?)`, userID); err != nil {
		return gamification.UserState{}, fmt.Errorf("failed to ensure user: %w", err)
	}
	var st gamification.UserState
	st.UserID = userID
	err := s.db.QueryRowContext(ctx,
		`SELECT experience, total_points, level FROM users WHERE id = ?`, userID).
		Scan(&st.Experience, &st.TotalPoints, &st.Level)
	if err != nil {
		return gamification.UserState{}, fmt.Errorf("failed to load user state: %w", err)
	}
	return st, nil
}

// AddExperience applies points inside a transaction, serialized so concurrent
// awards for the same user never lose updates.
func (s *Store) AddExperience(ctx context.Context, userID string, points int) (store.ExperienceResult, error) {
	s.expMu.Lock()
	defer s.expMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ExperienceResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO users (id) VALUES (?)`, userID); err != nil {
		return store.ExperienceResult{}, fmt.Errorf("failed to ensure user: %w", err)
	}

	var st gamification.UserState
	st.UserID = userID
	if err := tx.QueryRowContext(ctx,
		`SELECT experience, total_points, level FROM users WHERE id = ?`, userID).
		Scan(&st.Experience, &st.TotalPoints, &st.Level); err != nil {
		return store.ExperienceResult{}, fmt.Errorf("failed to load user state: %w", err)
	}

	prev := st.Level
	st.Experience += points
	st.TotalPoints += points
	st.Level = gamification.LevelFor(st.Experience)

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET experience = ?, total_points = ?, level = ? WHERE id = ?`,
		st.Experience, st.TotalPoints, st.Level, userID); err != nil {
		return store.ExperienceResult{}, fmt.Errorf("failed to update user state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.ExperienceResult{}, fmt.Errorf("failed to commit: %w", err)
	}

	return store.ExperienceResult{
		State:         st,
		LeveledUp:     st.Level > prev,
		PreviousLevel: prev,
		NewLevel:      st.Level,
	}, nil
}

// TopUsers returns up to limit users ranked by level, then total points.
func (s *Store) TopUsers(ctx context.Context, limit int) ([]gamification.UserState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experience, total_points, level FROM users
		 ORDER BY level DESC, total_points DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var out []gamification.UserState
	for rows.Next() {
		var st gamification.UserState
		if err := rows.Scan(&st.UserID, &st.Experience, &st.TotalPoints, &st.Level); err != nil {
			return nil, fmt.Errorf("failed to scan user state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListActive returns the active part of the in-process catalog.
func (s *Store) ListActive(_ context.Context) ([]gamification.Achievement, error) {
	var out []gamification.Achievement
	for _, a := range s.catalog {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

// UnlockedKeys returns catalog keys already unlocked by a user.
func (s *Store) UnlockedKeys(ctx context.Context, userID string) (map[string]bool, error) {
	unlocked, err := s.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(s.catalog))
	for _, a := range s.catalog {
		byID[a.ID] = a.Key
	}
	keys := make(map[string]bool, len(unlocked))
	for _, ua := range unlocked {
		if key, ok := byID[ua.AchievementID]; ok {
			keys[key] = true
		}
	}
	return keys, nil
}

// RecordUnlock grants an achievement via INSERT OR IGNORE; duplicates report
// created == false.
func (s *Store) RecordUnlock(ctx context.Context, userID, achievementID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, earned_at) VALUES (?, ?, ?)`,
		userID, achievementID, time.Now().UTC().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to record unlock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListUnlocked lists a user's unlocked achievements, newest first.
func (s *Store) ListUnlocked(ctx context.Context, userID string) ([]gamification.UserAchievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, achievement_id, earned_at FROM user_achievements
		 WHERE user_id = ? ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	var out []gamification.UserAchievement
	for rows.Next() {
		var ua gamification.UserAchievement
		var earned int64
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &earned); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		ua.EarnedAt = time.Unix(earned, 0).UTC()
		out = append(out, ua)
	}
	return out, rows.Err()
}

func encodeStrings(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(data string) []string {
	if data == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil
	}
	return items
}
