package gamification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mindfulhq/mindful/backend/internal/event"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	gamificationModel "github.com/mindfulhq/mindful/backend/internal/model/gamification"
	"github.com/mindfulhq/mindful/backend/internal/service/gamification"
	"github.com/mindfulhq/mindful/backend/internal/store/memstore"
)

func newEngine(t *testing.T) (*gamification.Service, *memstore.Store, *event.Bus) {
	t.Helper()
	st := memstore.New(gamification.Catalog())
	bus := event.NewBus()
	return gamification.NewService(st, st, st, st, st, bus), st, bus
}

func TestLevelFormula(t *testing.T) {
	cases := []struct {
		experience int
		level      int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{4999, 5},
		{5000, 6},
	}
	for _, tc := range cases {
		if got := gamificationModel.LevelFor(tc.experience); got != tc.level {
			t.Fatalf("LevelFor(%d) = %d, want %d", tc.experience, got, tc.level)
		}
	}
}

func TestAwardPointsUnknownActionIsNoop(t *testing.T) {
	svc, st, _ := newEngine(t)

	res, err := svc.AwardPoints(context.Background(), "u1", "mystery", nil)
	if err != nil {
		t.Fatalf("AwardPoints err: %v", err)
	}
	if res != nil {
		t.Fatalf("unknown action must return nil result, got %+v", res)
	}

	state, err := st.GetState(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.TotalPoints != 0 {
		t.Fatalf("unknown action must not award points, got %d", state.TotalPoints)
	}
}

func TestAwardPointsAccumulatesAndPublishes(t *testing.T) {
	svc, _, bus := newEngine(t)
	ctx := context.Background()

	earned := make(chan event.PointsEarnedPayload, 8)
	bus.Subscribe(event.PointsEarned, func(payload any) {
		if p, ok := payload.(event.PointsEarnedPayload); ok {
			earned <- p
		}
	})

	res, err := svc.AwardPoints(ctx, "u1", gamification.ActionAnalysisComplete, map[string]any{"sessionId": "s1"})
	if err != nil {
		t.Fatalf("AwardPoints err: %v", err)
	}
	if res.Points != 50 {
		t.Fatalf("unexpected points: %d", res.Points)
	}
	if res.State.TotalPoints != 50 || res.State.Experience != 50 {
		t.Fatalf("unexpected state: %+v", res.State)
	}
	if res.State.Level != 1 {
		t.Fatalf("unexpected level: %d", res.State.Level)
	}

	select {
	case p := <-earned:
		if p.Action != gamification.ActionAnalysisComplete || p.Points != 50 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("points_earned was not published")
	}
}

func TestLevelUpPublishedOnCrossing(t *testing.T) {
	svc, _, bus := newEngine(t)
	ctx := context.Background()

	levelUps := make(chan event.LevelUpPayload, 4)
	bus.Subscribe(event.LevelUp, func(payload any) {
		if p, ok := payload.(event.LevelUpPayload); ok {
			levelUps <- p
		}
	})

	// 20 analyses x 50 points crosses the 1000 experience boundary.
	for i := 0; i < 20; i++ {
		if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionAnalysisComplete, nil); err != nil {
			t.Fatalf("AwardPoints err: %v", err)
		}
	}

	select {
	case p := <-levelUps:
		if p.PreviousLevel != 1 || p.NewLevel != 2 {
			t.Fatalf("unexpected level transition: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("level_up was not published")
	}
}

func TestConcurrentAwardsNeverLosePoints(t *testing.T) {
	svc, st, _ := newEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionMessage, nil); err != nil {
				t.Errorf("AwardPoints err: %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := st.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.TotalPoints != 300 {
		t.Fatalf("lost updates: total points %d, want 300", state.TotalPoints)
	}
}

func TestAchievementUnlocksOnceAndAddsPoints(t *testing.T) {
	svc, st, bus := newEngine(t)
	ctx := context.Background()

	achievements := make(chan event.AchievementEarnedPayload, 8)
	bus.Subscribe(event.AchievementEarned, func(payload any) {
		if p, ok := payload.(event.AchievementEarnedPayload); ok {
			achievements <- p
		}
	})

	session, err := st.CreateSession(ctx, chat.Session{UserID: "u1", AssistantType: "coach"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := st.AddMessage(ctx, chat.Message{SessionID: session.ID, Role: chat.RoleUser, Content: "hi", Order: 1}); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionMessage, nil); err != nil {
		t.Fatalf("AwardPoints err: %v", err)
	}

	select {
	case p := <-achievements:
		if p.Achievement.Key != "first_message" {
			t.Fatalf("unexpected achievement: %s", p.Achievement.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("achievement_earned was not published")
	}

	// message points plus the achievement bonus
	state, err := st.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Experience != 20 {
		t.Fatalf("expected 20 experience, got %d", state.Experience)
	}

	// a second award must not unlock again
	if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionMessage, nil); err != nil {
		t.Fatalf("AwardPoints err: %v", err)
	}
	select {
	case p := <-achievements:
		t.Fatalf("achievement unlocked twice: %s", p.Achievement.Key)
	case <-time.After(50 * time.Millisecond):
	}

	unlocked, err := st.ListUnlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnlocked err: %v", err)
	}
	if len(unlocked) != 1 {
		t.Fatalf("expected exactly one unlock, got %d", len(unlocked))
	}
}

func TestHundredMessagesReachLevelTwoAndUnlockChatterbox(t *testing.T) {
	svc, st, _ := newEngine(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, chat.Session{UserID: "u1", AssistantType: "coach"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	for i := 1; i <= 100; i++ {
		if _, err := st.AddMessage(ctx, chat.Message{SessionID: session.ID, Role: chat.RoleUser, Content: "hi", Order: i}); err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
		if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionMessage, nil); err != nil {
			t.Fatalf("AwardPoints err: %v", err)
		}
	}

	state, err := st.GetState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	// 100 message awards plus the first_message and chatty_100 bonuses.
	if state.Experience != 1210 {
		t.Fatalf("unexpected experience: %d", state.Experience)
	}
	if state.Level != 2 {
		t.Fatalf("unexpected level: %d", state.Level)
	}

	unlocked, err := st.ListUnlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnlocked err: %v", err)
	}
	chatty := 0
	for _, ua := range unlocked {
		if ua.AchievementID == "chatty_100" {
			chatty++
		}
	}
	if chatty != 1 {
		t.Fatalf("chatty_100 unlocked %d times, want 1", chatty)
	}
	if len(unlocked) != 2 {
		t.Fatalf("expected first_message and chatty_100 only, got %d unlocks", len(unlocked))
	}
}

func TestLeaderboardRanksByLevelThenPoints(t *testing.T) {
	svc, st, _ := newEngine(t)
	ctx := context.Background()

	grants := map[string]int{"low": 100, "mid": 600, "high": 1500}
	for userID, points := range grants {
		if _, err := st.AddExperience(ctx, userID, points); err != nil {
			t.Fatalf("AddExperience err: %v", err)
		}
	}

	top, err := svc.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard err: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].UserID != "high" || top[0].Level != 2 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	if top[1].UserID != "mid" {
		t.Fatalf("unexpected runner-up: %+v", top[1])
	}

	// default limit covers every user when none is given
	all, err := svc.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("Leaderboard err: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
}

func TestInactiveAchievementsAreNeverEvaluated(t *testing.T) {
	svc, st, _ := newEngine(t)
	ctx := context.Background()

	if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionMessage, nil); err != nil {
		t.Fatalf("AwardPoints err: %v", err)
	}

	unlocked, err := st.UnlockedKeys(ctx, "u1")
	if err != nil {
		t.Fatalf("UnlockedKeys err: %v", err)
	}
	if unlocked["week_streak"] {
		t.Fatal("inactive achievement must not unlock")
	}
}

func TestSnapshotReportsProgress(t *testing.T) {
	svc, _, _ := newEngine(t)
	ctx := context.Background()

	// 5 analysis awards: 250 experience plus the first_analysis bonus is
	// not granted here because no analyses are stored.
	for i := 0; i < 5; i++ {
		if _, err := svc.AwardPoints(ctx, "u1", gamification.ActionAnalysisComplete, nil); err != nil {
			t.Fatalf("AwardPoints err: %v", err)
		}
	}

	overview, err := svc.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("Snapshot err: %v", err)
	}

	if overview.State.Experience != 250 {
		t.Fatalf("unexpected experience: %d", overview.State.Experience)
	}
	if overview.Progress.CurrentLevel != 1 {
		t.Fatalf("unexpected level: %d", overview.Progress.CurrentLevel)
	}
	if overview.Progress.ProgressToNext != 250 || overview.Progress.ExpToNextLevel != 750 {
		t.Fatalf("unexpected progress: %+v", overview.Progress)
	}
	if overview.Available != 5 {
		t.Fatalf("expected 5 active achievements, got %d", overview.Available)
	}
}
