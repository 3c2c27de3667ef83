package analysis

import (
	"fmt"
	"log"
	"strings"

	"github.com/mindfulhq/mindful/backend/internal/model/assistant"
	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// Strategy is one analysis policy: it frames the provider prompt for its
// style and normalizes the raw provider output back into the canonical shape.
// The set of strategies is closed; each assistant analysis style maps to
// exactly one.
type Strategy interface {
	Name() string
	BuildPrompt(messages []chat.Message, assistantPrompt string) string
	ExtractInsights(raw ai.RawAnalysis) Extraction
}

// Extraction is the canonical normalized analysis shape.
type Extraction struct {
	Strategy        string
	Insights        []string
	Emotions        []string
	Patterns        []string
	Recommendations []string
}

// DefaultStrategies returns the built-in strategy registry keyed by analysis
// style.
func DefaultStrategies() map[string]Strategy {
	return map[string]Strategy{
		assistant.StyleActionOriented: actionOriented{},
		assistant.StylePatternFocused: patternFocused{},
		assistant.StyleInsightDriven:  insightDriven{},
		assistant.StyleEmotionFocused: emotionFocused{},
	}
}

// safeExtract shields the pipeline from extraction faults: any panic inside a
// strategy yields an empty-with-placeholder result instead of failing the
// whole analysis.
func safeExtract(s Strategy, raw ai.RawAnalysis) (out Extraction) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[analysis] %s extraction failed, using placeholder: %v", s.Name(), r)
			out = Extraction{
				Strategy: s.Name(),
				Insights: []string{"Analysis is temporarily unavailable"},
			}
		}
	}()
	return s.ExtractInsights(raw)
}

func renderDialogue(messages []chat.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

func promptTemplate(assistantPrompt, dialogue, focus, format string) string {
	return fmt.Sprintf(`Assistant context: %s

Dialogue:
%s

Provide a brief analysis of the dialogue focused on:
%s

Respond with JSON in this exact format:
%s`, assistantPrompt, dialogue, focus, format)
}

// pick returns the first non-empty candidate, or an empty slice so persisted
// results always carry arrays.
func pick(candidates ...[]string) []string {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return []string{}
}
