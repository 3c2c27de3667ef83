// Package ai adapts the external reasoning model behind a typed interface:
// structured dialogue analysis with retry and fallback, and live reply
// generation.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	chatmodel "github.com/mindfulhq/mindful/backend/internal/model/chat"
)

// ErrProviderUnavailable reports that every attempt against the reasoning
// provider failed.
var ErrProviderUnavailable = errors.New("reasoning provider unavailable")

// Config controls retry and context sizing.
type Config struct {
	// MaxAttempts bounds invocation retries; default 3.
	MaxAttempts int
	// RetryBase is the backoff unit: attempt n sleeps 2^n * RetryBase.
	// Default one second.
	RetryBase time.Duration
	// HistoryLimit caps conversation turns sent to the provider; default 10.
	HistoryLimit int
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 10
	}
	return c
}

// RawAnalysis is the normalized provider output. Extra retains the loosely
// typed response fields so strategies can resolve their alias names; the raw
// shape never travels further than insight extraction.
type RawAnalysis struct {
	Strategy        string
	Insights        []string
	Emotions        []string
	Patterns        []string
	Recommendations []string
	Extra           map[string]any
	Metadata        RawMetadata
}

// RawMetadata records provenance for a provider response.
type RawMetadata struct {
	Model      string
	Timestamp  time.Time
	IsFallback bool
	ErrorType  string
}

// Alias returns the first non-empty string array stored under any of the
// given alternate field names.
func (r RawAnalysis) Alias(keys ...string) []string {
	for _, key := range keys {
		if vals := stringSlice(r.Extra[key]); len(vals) > 0 {
			return vals
		}
	}
	return nil
}

// HasContent reports whether any of the four insight arrays is non-empty.
func (r RawAnalysis) HasContent() bool {
	return len(r.Insights) > 0 || len(r.Emotions) > 0 ||
		len(r.Patterns) > 0 || len(r.Recommendations) > 0
}

// Provider sends structured requests to the reasoning model through a
// compiled eino chain.
type Provider struct {
	modelName string
	cfg       Config
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewProvider compiles the prompt chain around the supplied chat model.
func NewProvider(ctx context.Context, chatModel model.ChatModel, modelName string, cfg Config) (*Provider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile provider chain: %w", err)
	}

	return &Provider{modelName: modelName, cfg: cfg.withDefaults(), chain: runnable}, nil
}

// AnalyzeDialogue runs a structured analysis request. Transport failures are
// retried with exponential backoff and surface as ErrProviderUnavailable;
// parse failures and empty responses are absorbed into a fallback result and
// never returned as errors.
func (p *Provider) AnalyzeDialogue(ctx context.Context, systemPrompt, analysisPrompt string, history []chatmodel.Message) (RawAnalysis, error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": p.historyMessages(history),
		"query":   analysisPrompt,
	}

	response, err := p.invoke(ctx, input)
	if err != nil {
		return RawAnalysis{}, err
	}

	return p.parseAnalysis(response.Content), nil
}

// GenerateReply produces a live assistant response. Failures propagate to the
// caller, which substitutes an apology for the end user.
func (p *Provider) GenerateReply(ctx context.Context, systemPrompt string, history []chatmodel.Message, userMessage string) (string, error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": p.historyMessages(history),
		"query":   userMessage,
	}

	response, err := p.invoke(ctx, input)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

func (p *Provider) invoke(ctx context.Context, input map[string]any) (*schema.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		response, err := p.chain.Invoke(ctx, input)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if attempt == p.cfg.MaxAttempts {
			break
		}

		delay := p.cfg.RetryBase << attempt // 2^attempt units
		log.Printf("[ai] attempt %d/%d failed, retrying in %s: %v", attempt, p.cfg.MaxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

func (p *Provider) historyMessages(messages []chatmodel.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > p.cfg.HistoryLimit {
		startIdx = len(messages) - p.cfg.HistoryLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chatmodel.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chatmodel.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}

func (p *Provider) parseAnalysis(content string) RawAnalysis {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &raw); err != nil {
		log.Printf("[ai] failed to parse analysis response: %v", err)
		return p.fallbackAnalysis("parse_error")
	}

	result := RawAnalysis{
		Strategy:        stringValue(raw["strategy"]),
		Insights:        stringSlice(raw["insights"]),
		Emotions:        stringSlice(raw["emotions"]),
		Patterns:        stringSlice(raw["patterns"]),
		Recommendations: stringSlice(raw["recommendations"]),
		Extra:           raw,
		Metadata: RawMetadata{
			Model:     p.modelName,
			Timestamp: time.Now().UTC(),
		},
	}
	if result.Strategy == "" {
		result.Strategy = "unknown"
	}
	if !result.HasContent() {
		log.Printf("[ai] provider returned an empty analysis, using fallback")
		return p.fallbackAnalysis("empty_response")
	}
	return result
}

var fallbackInsights = map[string][]string{
	"empty_response": {
		"The dialogue was analyzed, but detailed insights are temporarily unavailable",
		"Keep the conversation going for a deeper analysis",
	},
	"parse_error": {
		"A technical error occurred during analysis",
		"Try continuing the dialogue",
	},
}

func (p *Provider) fallbackAnalysis(errorType string) RawAnalysis {
	insights, ok := fallbackInsights[errorType]
	if !ok {
		insights = []string{"Analysis is temporarily unavailable"}
	}
	return RawAnalysis{
		Strategy:        "fallback",
		Insights:        insights,
		Emotions:        []string{"neutral"},
		Patterns:        []string{"dialogue continuation"},
		Recommendations: []string{"Continue the conversation to improve the analysis"},
		Metadata: RawMetadata{
			Model:      p.modelName,
			Timestamp:  time.Now().UTC(),
			IsFallback: true,
			ErrorType:  errorType,
		},
	}
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case string:
			out = append(out, val)
		case map[string]any:
			// Some responses wrap entries in objects; prefer common text keys.
			for _, key := range []string{"content", "text", "title", "description"} {
				if s, ok := val[key].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
