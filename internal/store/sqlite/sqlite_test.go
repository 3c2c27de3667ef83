package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	analysismodel "github.com/mindfulhq/mindful/backend/internal/model/analysis"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	memorymodel "github.com/mindfulhq/mindful/backend/internal/model/memory"
	gamificationService "github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
	"github.com/mindfulhq/mindful/backend/internal/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), gamificationService.Catalog())
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSessionsAndMessagesRoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, chat.Session{UserID: "u1", AssistantType: "therapist", Title: "Evening"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := st.FindSession(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for i, role := range []string{chat.RoleUser, chat.RoleAssistant} {
		if _, err := st.AddMessage(ctx, chat.Message{SessionID: session.ID, Role: role, Content: "hello", Order: i + 1}); err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
	}

	loaded, err := st.FindSessionWithMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindSessionWithMessages err: %v", err)
	}
	if loaded.AssistantType != "therapist" {
		t.Fatalf("unexpected assistant type: %s", loaded.AssistantType)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != chat.RoleUser || loaded.Messages[1].Role != chat.RoleAssistant {
		t.Fatalf("messages out of order: %+v", loaded.Messages)
	}

	userOnly, err := st.UserMessageCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("UserMessageCount err: %v", err)
	}
	if userOnly != 1 {
		t.Fatalf("unexpected user message count: %d", userOnly)
	}
}

func TestAnalysisRoundTripKeepsArraysAndMetadata(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	result := analysismodel.Result{
		ID:              "a1",
		SessionID:       "s1",
		Strategy:        "emotion-focused",
		Insights:        []string{"one", "two"},
		Emotions:        []string{"calm"},
		Patterns:        []string{},
		Recommendations: []string{"rest"},
		Metadata: analysismodel.Metadata{
			Model:      "test-model",
			Timestamp:  time.Now().UTC().Truncate(time.Second),
			IsFallback: true,
			ErrorType:  "empty_response",
		},
		CreatedAt: time.Now().UTC(),
	}

	if _, err := st.CreateAnalysis(ctx, result); err != nil {
		t.Fatalf("CreateAnalysis err: %v", err)
	}

	loaded, err := st.FindAnalysis(ctx, "a1")
	if err != nil {
		t.Fatalf("FindAnalysis err: %v", err)
	}
	if len(loaded.Insights) != 2 || loaded.Insights[1] != "two" {
		t.Fatalf("insights lost in round trip: %v", loaded.Insights)
	}
	if loaded.Patterns == nil || len(loaded.Patterns) != 0 {
		t.Fatalf("empty array must stay an empty array, got %v", loaded.Patterns)
	}
	if !loaded.Metadata.IsFallback || loaded.Metadata.ErrorType != "empty_response" {
		t.Fatalf("metadata lost in round trip: %+v", loaded.Metadata)
	}

	if _, err := st.FindAnalysis(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryEntriesSearchAndCount(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	if _, err := st.CreateEntry(ctx, memorymodel.Entry{
		UserID: "u1", Title: "Sleep", Content: "Going to bed early helps",
		Type: "insight", Tags: []string{"health"}, Importance: 3,
	}); err != nil {
		t.Fatalf("CreateEntry err: %v", err)
	}

	bulk, err := st.BulkCreateFromChat(ctx, "u1", "s1", []memorymodel.Entry{
		{Title: "Insight: walking", Content: "walking clears the head", Type: "insight", Tags: []string{"auto-generated"}, Importance: 3},
	})
	if err != nil {
		t.Fatalf("BulkCreateFromChat err: %v", err)
	}
	if len(bulk) != 1 || bulk[0].SourceType != memorymodel.SourceChat || bulk[0].SourceID != "s1" {
		t.Fatalf("bulk entry missing chat source: %+v", bulk)
	}

	found, err := st.SearchByUser(ctx, "u1", "walking")
	if err != nil {
		t.Fatalf("SearchByUser err: %v", err)
	}
	if len(found) != 1 || found[0].Content != "walking clears the head" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	count, err := st.MemoryCountByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("MemoryCountByUser err: %v", err)
	}
	if count != 2 {
		t.Fatalf("unexpected memory count: %d", count)
	}
}

func TestAddExperiencePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	st, err := sqlite.Open(path, gamificationService.Catalog())
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}

	ctx := context.Background()
	res, err := st.AddExperience(ctx, "u1", 1200)
	if err != nil {
		t.Fatalf("AddExperience err: %v", err)
	}
	if !res.LeveledUp || res.NewLevel != 2 {
		t.Fatalf("unexpected crossing: %+v", res)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	reopened, err := sqlite.Open(path, gamificationService.Catalog())
	if err != nil {
		t.Fatalf("reopen err: %v", err)
	}
	defer reopened.Close()

	state, err := reopened.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Experience != 1200 || state.Level != 2 {
		t.Fatalf("state not persisted: %+v", state)
	}
}

func TestTopUsersRankedFromDisk(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for userID, points := range map[string]int{"a": 2500, "b": 1200, "c": 1900} {
		if _, err := st.AddExperience(ctx, userID, points); err != nil {
			t.Fatalf("AddExperience err: %v", err)
		}
	}

	top, err := st.TopUsers(ctx, 2)
	if err != nil {
		t.Fatalf("TopUsers err: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 users, got %d", len(top))
	}
	if top[0].UserID != "a" || top[1].UserID != "c" {
		t.Fatalf("unexpected ranking: %s, %s", top[0].UserID, top[1].UserID)
	}
	if top[0].TotalPoints != 2500 {
		t.Fatalf("unexpected points: %d", top[0].TotalPoints)
	}
}

func TestRecordUnlockIdempotentOnDisk(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	created, err := st.RecordUnlock(ctx, "u1", "first_analysis")
	if err != nil {
		t.Fatalf("RecordUnlock err: %v", err)
	}
	if !created {
		t.Fatal("first unlock must report created")
	}

	created, err = st.RecordUnlock(ctx, "u1", "first_analysis")
	if err != nil {
		t.Fatalf("RecordUnlock err: %v", err)
	}
	if created {
		t.Fatal("duplicate unlock must not report created")
	}

	keys, err := st.UnlockedKeys(ctx, "u1")
	if err != nil {
		t.Fatalf("UnlockedKeys err: %v", err)
	}
	if !keys["first_analysis"] || len(keys) != 1 {
		t.Fatalf("unexpected unlocked keys: %v", keys)
	}
}
