package analysis

import (
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// patternFocused surfaces recurring behavior and hidden beliefs.
type patternFocused struct{}

func (patternFocused) Name() string { return assistant.StylePatternFocused }

func (patternFocused) BuildPrompt(messages []chat.Message, assistantPrompt string) string {
	return promptTemplate(assistantPrompt, renderDialogue(messages),
		`1. Recurring patterns of behavior or thinking
2. Main themes and cycles in the conversation
3. Hidden beliefs and assumptions`,
		`{
  "strategy": "pattern-focused",
  "insights": ["key pattern 1", "important cycle 2", "hidden assumption 3"],
  "emotions": ["emotion tied to the pattern", "feeling of repetition", "reaction to the cycle"],
  "patterns": ["behavioral pattern 1", "thought pattern 2", "recurring theme 3"],
  "recommendations": ["way to change the pattern 1", "awareness strategy 2", "transformation method 3"]
}`)
}

func (s patternFocused) ExtractInsights(raw ai.RawAnalysis) Extraction {
	return Extraction{
		Strategy:        s.Name(),
		Insights:        pick(raw.Insights),
		Emotions:        pick(raw.Emotions),
		Patterns:        pick(raw.Patterns, raw.Alias("behaviorPatterns", "thoughtPatterns", "recursiveThemes")),
		Recommendations: pick(raw.Recommendations, raw.Alias("underlyingBeliefs")),
	}
}
