package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mindfulhq/mindful/backend/internal/model/chat"
	"github.com/mindfulhq/mindful/backend/internal/service/ai"
)

// stubModel scripts the chat model behind the provider chain: the first
// failures calls error out, then every call returns response.
type stubModel struct {
	mu        sync.Mutex
	calls     int
	failures  int
	response  string
	lastInput []*schema.Message
}

func (m *stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastInput = input
	if m.calls <= m.failures {
		return nil, errors.New("transport error")
	}
	return schema.AssistantMessage(m.response, nil), nil
}

func (m *stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *stubModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func newProvider(t *testing.T, stub *stubModel, cfg ai.Config) *ai.Provider {
	t.Helper()
	provider, err := ai.NewProvider(context.Background(), stub, "test-model", cfg)
	if err != nil {
		t.Fatalf("NewProvider err: %v", err)
	}
	return provider
}

func TestAnalyzeDialogueParsesStructuredResponse(t *testing.T) {
	stub := &stubModel{response: `{
		"strategy": "action-oriented",
		"insights": ["first insight"],
		"emotions": ["calm"],
		"patterns": ["recurring doubt"],
		"recommendations": ["take a walk"],
		"actionItems": ["write it down"]
	}`}
	provider := newProvider(t, stub, ai.Config{})

	raw, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if err != nil {
		t.Fatalf("AnalyzeDialogue err: %v", err)
	}

	if raw.Strategy != "action-oriented" {
		t.Fatalf("unexpected strategy: %s", raw.Strategy)
	}
	if len(raw.Insights) != 1 || raw.Insights[0] != "first insight" {
		t.Fatalf("unexpected insights: %v", raw.Insights)
	}
	if raw.Metadata.IsFallback {
		t.Fatal("structured response must not be marked fallback")
	}
	if raw.Metadata.Model != "test-model" {
		t.Fatalf("unexpected model name: %s", raw.Metadata.Model)
	}
	if got := raw.Alias("missing", "actionItems"); len(got) != 1 || got[0] != "write it down" {
		t.Fatalf("alias lookup failed: %v", got)
	}
}

func TestAnalyzeDialogueStripsCodeFences(t *testing.T) {
	stub := &stubModel{response: "```json\n{\"insights\": [\"fenced\"]}\n```"}
	provider := newProvider(t, stub, ai.Config{})

	raw, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if err != nil {
		t.Fatalf("AnalyzeDialogue err: %v", err)
	}
	if len(raw.Insights) != 1 || raw.Insights[0] != "fenced" {
		t.Fatalf("unexpected insights: %v", raw.Insights)
	}
}

func TestAnalyzeDialogueFallbackOnUnparseableResponse(t *testing.T) {
	stub := &stubModel{response: "this is not json"}
	provider := newProvider(t, stub, ai.Config{})

	raw, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if err != nil {
		t.Fatalf("parse failures must not surface as errors, got %v", err)
	}

	if raw.Strategy != "fallback" {
		t.Fatalf("unexpected strategy: %s", raw.Strategy)
	}
	if !raw.Metadata.IsFallback {
		t.Fatal("fallback result must carry the fallback marker")
	}
	if raw.Metadata.ErrorType != "parse_error" {
		t.Fatalf("unexpected error type: %s", raw.Metadata.ErrorType)
	}
	if !raw.HasContent() {
		t.Fatal("fallback result must still carry placeholder content")
	}
}

func TestAnalyzeDialogueFallbackOnEmptyResponse(t *testing.T) {
	stub := &stubModel{response: `{"insights": [], "emotions": []}`}
	provider := newProvider(t, stub, ai.Config{})

	raw, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if err != nil {
		t.Fatalf("AnalyzeDialogue err: %v", err)
	}
	if raw.Metadata.ErrorType != "empty_response" {
		t.Fatalf("unexpected error type: %s", raw.Metadata.ErrorType)
	}
}

func TestInvokeRetriesTransportFailures(t *testing.T) {
	stub := &stubModel{failures: 2, response: `{"insights": ["recovered"]}`}
	provider := newProvider(t, stub, ai.Config{MaxAttempts: 3, RetryBase: time.Millisecond})

	raw, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if err != nil {
		t.Fatalf("AnalyzeDialogue err: %v", err)
	}
	if len(raw.Insights) != 1 || raw.Insights[0] != "recovered" {
		t.Fatalf("unexpected insights: %v", raw.Insights)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", stub.calls)
	}
}

func TestInvokeExhaustsAttempts(t *testing.T) {
	stub := &stubModel{failures: 10}
	provider := newProvider(t, stub, ai.Config{MaxAttempts: 2, RetryBase: time.Millisecond})

	_, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", nil)
	if !errors.Is(err, ai.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", stub.calls)
	}
}

func TestHistoryIsCappedToLimit(t *testing.T) {
	stub := &stubModel{response: `{"insights": ["ok"]}`}
	provider := newProvider(t, stub, ai.Config{HistoryLimit: 2})

	history := []chat.Message{
		{Role: chat.RoleUser, Content: "one"},
		{Role: chat.RoleAssistant, Content: "two"},
		{Role: chat.RoleUser, Content: "three"},
		{Role: chat.RoleAssistant, Content: "four"},
	}

	if _, err := provider.AnalyzeDialogue(context.Background(), "system", "analyze", history); err != nil {
		t.Fatalf("AnalyzeDialogue err: %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()

	// system + capped history + query
	if len(stub.lastInput) != 4 {
		t.Fatalf("expected 4 prompt messages, got %d", len(stub.lastInput))
	}
	if stub.lastInput[1].Content != "three" {
		t.Fatalf("expected oldest kept turn to be %q, got %q", "three", stub.lastInput[1].Content)
	}
}

func TestGenerateReplyPropagatesFailure(t *testing.T) {
	stub := &stubModel{failures: 10}
	provider := newProvider(t, stub, ai.Config{MaxAttempts: 1, RetryBase: time.Millisecond})

	if _, err := provider.GenerateReply(context.Background(), "system", nil, "hello"); !errors.Is(err, ai.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGenerateReplyReturnsContent(t *testing.T) {
	stub := &stubModel{response: "Hello there"}
	provider := newProvider(t, stub, ai.Config{})

	reply, err := provider.GenerateReply(context.Background(), "system", nil, "hi")
	if err != nil {
		t.Fatalf("GenerateReply err: %v", err)
	}
	if reply != "Hello there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}
