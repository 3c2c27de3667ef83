// Package pipeline wires the built-in event bus reactions: analysis triggers
// run the orchestrator, and completed analyses feed the memory auto-capture.
package pipeline

import (
	"context"
	"log"

	"github.com/mindfulhq/mindful/backend/internal/event"
	analysisservice "github.com/mindfulhq/mindful/backend/internal/service/analysis"
	memoryservice "github.com/mindfulhq/mindful/backend/internal/service/memory"
	"github.com/mindfulhq/mindful/backend/internal/store"
)

// Pipeline holds the bus subscriptions connecting trigger, analysis, and
// memory capture.
type Pipeline struct {
	bus      *event.Bus
	analyzer *analysisservice.Service
	memories *memoryservice.Service
	chats    store.ChatStore
	subs     []event.Subscription
}

// Attach registers the reactions and returns the pipeline for Detach.
func Attach(bus *event.Bus, analyzer *analysisservice.Service, memories *memoryservice.Service, chats store.ChatStore) *Pipeline {
	p := &Pipeline{bus: bus, analyzer: analyzer, memories: memories, chats: chats}
	p.subs = append(p.subs,
		bus.Subscribe(event.AnalysisTrigger, p.handleTrigger),
		bus.Subscribe(event.AnalysisCompleted, p.handleCompleted),
	)
	return p
}

// Detach removes the bus subscriptions.
func (p *Pipeline) Detach() {
	for _, sub := range p.subs {
		p.bus.Unsubscribe(sub)
	}
	p.subs = nil
}

// handleTrigger runs one analysis and republishes exactly one terminal event.
func (p *Pipeline) handleTrigger(payload any) {
	trigger, ok := payload.(event.TriggerPayload)
	if !ok {
		return
	}

	result, err := p.analyzer.Analyze(context.Background(), trigger.SessionID)
	if err != nil {
		log.Printf("[pipeline] analysis failed for session=%s: %v", trigger.SessionID, err)
		p.bus.Publish(event.AnalysisFailed, event.FailedPayload{SessionID: trigger.SessionID, Err: err})
		return
	}

	p.bus.Publish(event.AnalysisCompleted, event.CompletedPayload{
		SessionID:  trigger.SessionID,
		AnalysisID: result.ID,
		Result:     result,
	})
}

// handleCompleted auto-captures insights into memory. Best effort: failures
// are logged and never republished.
func (p *Pipeline) handleCompleted(payload any) {
	completed, ok := payload.(event.CompletedPayload)
	if !ok {
		return
	}

	ctx := context.Background()
	session, err := p.chats.FindSession(ctx, completed.SessionID)
	if err != nil {
		log.Printf("[pipeline] auto-capture skipped, session %s lookup failed: %v", completed.SessionID, err)
		return
	}

	n, err := p.memories.AutoCapture(ctx, session.UserID, completed.SessionID, completed.Result)
	if err != nil {
		log.Printf("[pipeline] auto-capture failed for session=%s: %v", completed.SessionID, err)
		return
	}
	if n > 0 {
		log.Printf("[pipeline] captured %d insights for session=%s", n, completed.SessionID)
	}
}
