package gamification

import "github.com/mindfulhq/mindful/backend/internal/model/gamification"

// Catalog returns the built-in achievement definitions. week_streak ships
// inactive: daily-activity tracking it depends on is not wired yet.
func Catalog() []gamification.Achievement {
	return []gamification.Achievement{
		{
			ID: "first_message", Key: "first_message",
			Name: "First Steps", Description: "Send your first message",
			Icon: "👋", Category: "engagement", Points: 10, Active: true,
			Unlocks: func(st gamification.Stats) bool { return st.MessageCount >= 1 },
		},
		{
			ID: "first_analysis", Key: "first_analysis",
			Name: "Thinker", Description: "Receive your first analysis",
			Icon: "🧠", Category: "progress", Points: 50, Active: true,
			Unlocks: func(st gamification.Stats) bool { return st.AnalysisCount >= 1 },
		},
		{
			ID: "insight_collector_10", Key: "insight_collector_10",
			Name: "Collector", Description: "Save 10 insights to memory",
			Icon: "📚", Category: "milestones", Points: 100, Active: true,
			Unlocks: func(st gamification.Stats) bool { return st.MemoryCount >= 10 },
		},
		{
			ID: "chatty_100", Key: "chatty_100",
			Name: "Chatterbox", Description: "Send 100 messages",
			Icon: "💬", Category: "milestones", Points: 200, Active: true,
			Unlocks: func(st gamification.Stats) bool { return st.MessageCount >= 100 },
		},
		{
			ID: "level_5", Key: "level_5",
			Name: "Ascendant", Description: "Reach level 5",
			Icon: "⭐", Category: "milestones", Points: 150, Active: true,
			Unlocks: func(st gamification.Stats) bool { return st.Level >= 5 },
		},
		{
			ID: "week_streak", Key: "week_streak",
			Name: "Consistency", Description: "Use the app 7 days in a row",
			Icon: "🔥", Category: "engagement", Points: 120, Active: false,
		},
	}
}
