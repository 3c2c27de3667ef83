package analysis

import (
	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// insightDriven looks for deep realizations and long-term perspective.
type insightDriven struct{}

func (insightDriven) Name() string { return assistant.StyleInsightDriven }

func (insightDriven) BuildPrompt(messages []chat.Message, assistantPrompt string) string {
	return promptTemplate(assistantPrompt, renderDialogue(messages),
		`1. Deep insights and realizations
2. Opportunities for growth and development
3. Long-term perspective and life lessons`,
		`{
  "strategy": "insight-driven",
  "insights": ["deep insight 1", "key realization 2", "important understanding 3"],
  "emotions": ["search for meaning", "desire to grow", "drive for understanding"],
  "patterns": ["self-discovery pattern", "learning cycle", "reflection habit"],
  "recommendations": ["growth opportunity 1", "life lesson 2", "long-term perspective 3"]
}`)
}

func (s insightDriven) ExtractInsights(raw ai.RawAnalysis) Extraction {
	return Extraction{
		Strategy:        s.Name(),
		Insights:        pick(raw.Insights, raw.Alias("deepInsights")),
		Emotions:        pick(raw.Emotions),
		Patterns:        pick(raw.Patterns),
		Recommendations: pick(raw.Recommendations, raw.Alias("growthOpportunities", "lifeWisdom", "longTermPerspective")),
	}
}
