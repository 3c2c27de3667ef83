package analysis

import (
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// emotionFocused centers on emotional state, triggers and regulation.
type emotionFocused struct{}

func (emotionFocused) Name() string { return assistant.StyleEmotionFocused }

func (emotionFocused) BuildPrompt(messages []chat.Message, assistantPrompt string) string {
	return promptTemplate(assistantPrompt, renderDialogue(messages),
		`1. Emotional state and the dynamics of feelings
2. Emotional needs and triggers
3. Ways to offer support and emotional regulation`,
		`{
  "strategy": "emotion-focused",
  "insights": ["emotional insight 1", "understanding of state 2", "dynamics of feelings 3"],
  "emotions": ["primary emotion 1", "accompanying feeling 2", "hidden experience 3"],
  "patterns": ["emotional trigger 1", "reaction pattern 2", "cycle of feelings 3"],
  "recommendations": ["support strategy 1", "regulation technique 2", "growth practice 3"]
}`)
}

func (s emotionFocused) ExtractInsights(raw ai.RawAnalysis) Extraction {
	return Extraction{
		Strategy:        s.Name(),
		Insights:        pick(raw.Insights),
		Emotions:        pick(raw.Emotions, raw.Alias("emotionalStates")),
		Patterns:        pick(raw.Patterns, raw.Alias("emotionalTriggers")),
		Recommendations: pick(raw.Recommendations, raw.Alias("supportStrategies", "emotionalGrowth")),
	}
}
