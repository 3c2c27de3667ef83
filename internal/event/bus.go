package event

import (
	"log"
	"sync"
)

// Type names a category of bus events.
type Type string

// Built-in event types.
const (
	AnalysisTrigger   Type = "analysis:trigger"
	AnalysisCompleted Type = "analysis:completed"
	AnalysisFailed    Type = "analysis:failed"
	PointsEarned      Type = "gamification:points_earned"
	LevelUp           Type = "gamification:level_up"
	AchievementEarned Type = "gamification:achievement_earned"
)

// Handler receives the payload published for an event type.
type Handler func(payload any)

// Subscription identifies one registered handler for later removal.
type Subscription struct {
	eventType Type
	id        uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub. Publishing never blocks the
// caller: handlers run on a separate goroutine, in registration order for a
// given event. A handler panic is logged and does not stop later handlers or
// future events. There is no persistence and no delivery across restarts.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Type][]subscriber
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type][]subscriber)}
}

// Subscribe registers a handler for an event type and returns a handle for
// Unsubscribe. Handlers registered first are invoked first.
func (b *Bus) Subscribe(t Type, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[t] = append(b.subs[t], subscriber{id: b.nextID, handler: h})
	return Subscription{eventType: t, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Removing the same
// subscription twice is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.eventType]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every handler currently registered for t.
// The subscriber list is snapshotted under the lock, so concurrent
// subscribe/unsubscribe never corrupts an in-flight dispatch.
func (b *Bus) Publish(t Type, payload any) {
	b.mu.Lock()
	snapshot := append([]subscriber(nil), b.subs[t]...)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	go func() {
		for _, s := range snapshot {
			dispatch(t, s.handler, payload)
		}
	}()
}

func dispatch(t Type, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[event] handler for %s panicked: %v", t, r)
		}
	}()
	h(payload)
}
