// Package memstore is the in-memory store implementation. It backs tests and
// runs without a configured database file.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/model/gamification"
	"github.com/mindfulhq/mindful/backend/internal/model/memory"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

// Store keeps everything in maps behind a single mutex, which also makes
// AddExperience an atomic read-modify-write.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]chat.Session
	messages  map[string][]chat.Message
	analyses  map[string]analysis.Result
	memories  map[string][]memory.Entry
	users     map[string]gamification.UserState
	catalog   []gamification.Achievement
	unlocks   map[string]map[string]time.Time
	nowFn     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store seeded with the achievement catalog.
func New(catalog []gamification.Achievement) *Store {
	return &Store{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		analyses: make(map[string]analysis.Result),
		memories: make(map[string][]memory.Entry),
		users:    make(map[string]gamification.UserState),
		catalog:  append([]gamification.Achievement(nil), catalog...),
		unlocks:  make(map[string]map[string]time.Time),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Close implements store.Store; there is nothing to release.
func (s *Store) Close() error { return nil }

// CreateSession stores a new session, assigning ID and CreatedAt when unset.
func (s *Store) CreateSession(_ context.Context, sess chat.Session) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.nowFn()
	}
	s.sessions[sess.ID] = sess
	s.messages[sess.ID] = make([]chat.Message, 0, 16)
	return sess, nil
}

// FindSession retrieves a session by identifier.
func (s *Store) FindSession(_ context.Context, id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, store.ErrNotFound
	}
	return sess, nil
}

// FindSessionWithMessages retrieves a session with its full ordered history.
func (s *Store) FindSessionWithMessages(_ context.Context, id string) (chat.SessionWithMessages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return chat.SessionWithMessages{}, store.ErrNotFound
	}
	msgs := append([]chat.Message(nil), s.messages[id]...)
	return chat.SessionWithMessages{Session: sess, Messages: msgs}, nil
}

// SessionsByUser lists a user's sessions, newest first.
func (s *Store) SessionsByUser(_ context.Context, userID string) ([]chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []chat.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddMessage appends a message to its session history.
func (s *Store) AddMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[m.SessionID]; !ok {
		return chat.Message{}, store.ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.nowFn()
	}
	s.messages[m.SessionID] = append(s.messages[m.SessionID], m)
	return m, nil
}

// MessageCount counts all messages in a session.
func (s *Store) MessageCount(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[sessionID]), nil
}

// UserMessageCount counts user-role messages in a session.
func (s *Store) UserMessageCount(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.messages[sessionID] {
		if m.Role == chat.RoleUser {
			count++
		}
	}
	return count, nil
}

// UserMessageTotal counts all messages across a user's sessions.
func (s *Store) UserMessageTotal(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			total += len(s.messages[id])
		}
	}
	return total, nil
}

// CreateAnalysis stores a result, assigning ID and CreatedAt when unset.
func (s *Store) CreateAnalysis(_ context.Context, r analysis.Result) (analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.nowFn()
	}
	s.analyses[r.ID] = r
	return r, nil
}

// FindAnalysis retrieves a result by identifier.
func (s *Store) FindAnalysis(_ context.Context, id string) (analysis.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.analyses[id]
	if !ok {
		return analysis.Result{}, store.ErrNotFound
	}
	return r, nil
}

// AnalysisCountByUser counts results across a user's sessions.
func (s *Store) AnalysisCountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.analyses {
		if sess, ok := s.sessions[r.SessionID]; ok && sess.UserID == userID {
			count++
		}
	}
	return count, nil
}

// CreateEntry stores a memory entry, assigning ID and CreatedAt when unset.
func (s *Store) CreateEntry(_ context.Context, e memory.Entry) (memory.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEntryLocked(e), nil
}

func (s *Store) createEntryLocked(e memory.Entry) memory.Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.nowFn()
	}
	s.memories[e.UserID] = append(s.memories[e.UserID], e)
	return e
}

// BulkCreateFromChat stores auto-captured insights bound to a session.
func (s *Store) BulkCreateFromChat(_ context.Context, userID, sessionID string, entries []memory.Entry) ([]memory.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]memory.Entry, 0, len(entries))
	for _, e := range entries {
		e.UserID = userID
		e.SourceType = memory.SourceChat
		e.SourceID = sessionID
		created = append(created, s.createEntryLocked(e))
	}
	return created, nil
}

// ListByUser lists a user's entries, newest first.
func (s *Store) ListByUser(_ context.Context, userID string, limit int) ([]memory.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]memory.Entry(nil), s.memories[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchByUser matches the query against title, content and tags.
func (s *Store) SearchByUser(_ context.Context, userID, query string) ([]memory.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	var out []memory.Entry
	for _, e := range s.memories[userID] {
		if needle == "" || entryMatches(e, needle) {
			out = append(out, e)
		}
	}
	return out, nil
}

func entryMatches(e memory.Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Content), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// MemoryCountByUser counts a user's stored entries.
func (s *Store) MemoryCountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memories[userID]), nil
}

// GetState returns the user's engagement state, creating it on first access.
func (s *Store) GetState(_ context.Context, userID string) (gamification.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(userID), nil
}

func (s *Store) stateLocked(userID string) gamification.UserState {
	st, ok := s.users[userID]
	if !ok {
		st = gamification.UserState{UserID: userID, Level: 1}
		s.users[userID] = st
	}
	return st
}

// AddExperience applies points additively under the store lock.
func (s *Store) AddExperience(_ context.Context, userID string, points int) (store.ExperienceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(userID)
	prev := st.Level
	st.Experience += points
	st.TotalPoints += points
	st.Level = gamification.LevelFor(st.Experience)
	s.users[userID] = st

	return store.ExperienceResult{
		State:         st,
		LeveledUp:     st.Level > prev,
		PreviousLevel: prev,
		NewLevel:      st.Level,
	}, nil
}

// TopUsers returns up to limit users ranked by level, then total points.
func (s *Store) TopUsers(_ context.Context, limit int) ([]gamification.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]gamification.UserState, 0, len(s.users))
	for _, st := range s.users {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].TotalPoints > out[j].TotalPoints
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListActive returns the active part of the achievement catalog.
func (s *Store) ListActive(_ context.Context) ([]gamification.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []gamification.Achievement
	for _, a := range s.catalog {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

// UnlockedKeys returns catalog keys already unlocked by a user.
func (s *Store) UnlockedKeys(_ context.Context, userID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]bool)
	for _, a := range s.catalog {
		if _, ok := s.unlocks[userID][a.ID]; ok {
			keys[a.Key] = true
		}
	}
	return keys, nil
}

// RecordUnlock grants an achievement once; duplicates report created == false.
func (s *Store) RecordUnlock(_ context.Context, userID, achievementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlocks[userID] == nil {
		s.unlocks[userID] = make(map[string]time.Time)
	}
	if _, ok := s.unlocks[userID][achievementID]; ok {
		return false, nil
	}
	s.unlocks[userID][achievementID] = s.nowFn()
	return true, nil
}

// ListUnlocked lists a user's unlocked achievements.
func (s *Store) ListUnlocked(_ context.Context, userID string) ([]gamification.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []gamification.UserAchievement
	for id, earned := range s.unlocks[userID] {
		out = append(out, gamification.UserAchievement{UserID: userID, AchievementID: id, EarnedAt: earned})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	return out, nil
}
