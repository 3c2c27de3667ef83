package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	gamificationService "github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store"
	"github.com/mindfulhq/mindful/backend/internal/store/memstore"
)

func TestSessionLifecycle(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, chat.Session{UserID: "u1", AssistantType: "coach", Title: "Plans"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a generated session ID")
	}
	if session.CreatedAt.IsZero() {
		t.Fatal("expected a creation timestamp")
	}

	found, err := st.FindSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindSession err: %v", err)
	}
	if found.Title != "Plans" {
		t.Fatalf("unexpected title: %s", found.Title)
	}

	if _, err := st.FindSession(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sessions, err := st.SessionsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("SessionsByUser err: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
}

func TestMessagesKeepOrder(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, chat.Session{UserID: "u1", AssistantType: "coach"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	roles := []string{chat.RoleUser, chat.RoleAssistant, chat.RoleUser}
	for i, role := range roles {
		if _, err := st.AddMessage(ctx, chat.Message{SessionID: session.ID, Role: role, Content: "m", Order: i + 1}); err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
	}

	withMessages, err := st.FindSessionWithMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindSessionWithMessages err: %v", err)
	}
	if len(withMessages.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(withMessages.Messages))
	}
	for i, m := range withMessages.Messages {
		if m.Order != i+1 {
			t.Fatalf("messages out of order at %d: %d", i, m.Order)
		}
	}

	total, err := st.MessageCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("MessageCount err: %v", err)
	}
	if total != 3 {
		t.Fatalf("unexpected message count: %d", total)
	}

	userOnly, err := st.UserMessageCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("UserMessageCount err: %v", err)
	}
	if userOnly != 2 {
		t.Fatalf("unexpected user message count: %d", userOnly)
	}

	byUser, err := st.UserMessageTotal(ctx, "u1")
	if err != nil {
		t.Fatalf("UserMessageTotal err: %v", err)
	}
	if byUser != 2 {
		t.Fatalf("unexpected user message total: %d", byUser)
	}
}

func TestAddExperienceIsAtomic(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.AddExperience(ctx, "u1", 10); err != nil {
				t.Errorf("AddExperience err: %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := st.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Experience != 500 {
		t.Fatalf("lost experience updates: %d", state.Experience)
	}
	if state.TotalPoints != 500 {
		t.Fatalf("lost point updates: %d", state.TotalPoints)
	}
}

func TestAddExperienceReportsLevelCrossing(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()

	res, err := st.AddExperience(ctx, "u1", 999)
	if err != nil {
		t.Fatalf("AddExperience err: %v", err)
	}
	if res.LeveledUp {
		t.Fatal("999 experience must not level up")
	}

	res, err = st.AddExperience(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("AddExperience err: %v", err)
	}
	if !res.LeveledUp || res.PreviousLevel != 1 || res.NewLevel != 2 {
		t.Fatalf("unexpected crossing result: %+v", res)
	}
	if res.State.Level != 2 {
		t.Fatalf("state level not updated: %d", res.State.Level)
	}
}

func TestTopUsersOrderAndLimit(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()

	for userID, points := range map[string]int{"a": 2500, "b": 1200, "c": 1900, "d": 300} {
		if _, err := st.AddExperience(ctx, userID, points); err != nil {
			t.Fatalf("AddExperience err: %v", err)
		}
	}

	top, err := st.TopUsers(ctx, 3)
	if err != nil {
		t.Fatalf("TopUsers err: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 users, got %d", len(top))
	}
	// a leads at level 3; c beats b on points within level 2; d drops out.
	want := []string{"a", "c", "b"}
	for i, userID := range want {
		if top[i].UserID != userID {
			t.Fatalf("rank %d: got %s, want %s", i, top[i].UserID, userID)
		}
	}
}

func TestRecordUnlockIsIdempotent(t *testing.T) {
	st := memstore.New(gamificationService.Catalog())
	ctx := context.Background()

	created, err := st.RecordUnlock(ctx, "u1", "first_message")
	if err != nil {
		t.Fatalf("RecordUnlock err: %v", err)
	}
	if !created {
		t.Fatal("first unlock must report created")
	}

	created, err = st.RecordUnlock(ctx, "u1", "first_message")
	if err != nil {
		t.Fatalf("RecordUnlock err: %v", err)
	}
	if created {
		t.Fatal("duplicate unlock must not report created")
	}

	unlocked, err := st.ListUnlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnlocked err: %v", err)
	}
	if len(unlocked) != 1 {
		t.Fatalf("expected 1 unlock, got %d", len(unlocked))
	}
}

func TestListActiveExcludesInactive(t *testing.T) {
	st := memstore.New(gamificationService.Catalog())

	active, err := st.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive err: %v", err)
	}
	for _, a := range active {
		if a.Key == "week_streak" {
			t.Fatal("inactive achievement listed as active")
		}
	}
	if len(active) != 5 {
		t.Fatalf("expected 5 active achievements, got %d", len(active))
	}
}
