package api

import (
	"context"
	"sync"
	"time"
)

// PlanEvent is pushed to live subscribers when planning finishes for a
// store.
type PlanEvent struct {
	Type    string    `json:"type"` // plan.created, plan.failed
	StoreID string    `json:"storeId"`
	PlanID  string    `json:"planId,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// EventBroker fans plan events out to SSE and WebSocket subscribers,
// per store.
type EventBroker interface {
	Publish(ctx context.Context, ev PlanEvent) error
	Subscribe(ctx context.Context, storeID string) (<-chan PlanEvent, func(), error)
}

// MemoryBroker is the single-process broker. Slow subscribers drop events
// rather than block publishers.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan PlanEvent]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[chan PlanEvent]struct{}{}}
}

func (b *MemoryBroker) Publish(_ context.Context, ev PlanEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.StoreID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, storeID string) (<-chan PlanEvent, func(), error) {
	ch := make(chan PlanEvent, 16)
	b.mu.Lock()
	if b.subs[storeID] == nil {
		b.subs[storeID] = map[chan PlanEvent]struct{}{}
	}
	b.subs[storeID][ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[storeID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, storeID)
			}
		}
	}
	return ch, cancel, nil
}
