// Package webhooks fans plan events out to subscribed HTTP endpoints with
// signed payloads and retries.
package webhooks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fleetroute/internal/store"
)

// Event names emitted by the planner.
const (
	EventPlanCreated = "plan.created"
	EventPlanFailed  = "plan.failed"
)

// Publisher resolves subscriptions for an event and enqueues one delivery
// per subscriber. Actual sending happens in the Worker.
type Publisher struct {
	store store.Store
	log   zerolog.Logger
}

func NewPublisher(s store.Store, log zerolog.Logger) *Publisher {
	return &Publisher{store: s, log: log}
}

// Emit queues event for every matching subscription. Enqueue failures are
// logged and skipped so one bad subscriber never blocks plan creation.
func (p *Publisher) Emit(ctx context.Context, event string, payload map[string]any) {
	subs, err := p.store.SubscriptionsForEvent(ctx, event)
	if err != nil {
		p.log.Error().Err(err).Str("event", event).Msg("resolve webhook subscriptions")
		return
	}
	now := time.Now().UTC()
	for _, sub := range subs {
		d := store.WebhookDelivery{
			Event:       event,
			URL:         sub.URL,
			Secret:      sub.Secret,
			Payload:     payload,
			NextAttempt: now,
		}
		if err := p.store.EnqueueWebhook(ctx, d); err != nil {
			p.log.Error().Err(err).Str("event", event).Str("url", sub.URL).Msg("enqueue webhook")
		}
	}
}
