package analysis

import (
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// actionOriented focuses on challenges, concrete actions and next steps.
type actionOriented struct{}

func (actionOriented) Name() string { return assistant.StyleActionOriented }

func (actionOriented) BuildPrompt(messages []chat.Message, assistantPrompt string) string {
	return promptTemplate(assistantPrompt, renderDialogue(messages),
		`1. The user's key challenges and problems
2. Concrete actions to address them
3. Practical recommendations and next steps`,
		`{
  "strategy": "action-oriented",
  "insights": ["key problem 1", "challenge 2", "obstacle 3"],
  "emotions": ["anxiety about taking action", "motivation to change"],
  "patterns": ["postponing important decisions", "chasing quick wins"],
  "recommendations": ["concrete action 1", "next step 2", "action plan 3"]
}`)
}

func (s actionOriented) ExtractInsights(raw ai.RawAnalysis) Extraction {
	return Extraction{
		Strategy:        s.Name(),
		Insights:        pick(raw.Insights, raw.Alias("keyInsights")),
		Emotions:        pick(raw.Emotions),
		Patterns:        pick(raw.Patterns),
		Recommendations: pick(raw.Recommendations, raw.Alias("actionItems", "nextSteps")),
	}
}
