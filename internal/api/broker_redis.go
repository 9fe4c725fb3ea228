package api

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroker carries plan events across replicas via pub/sub. Channels are
// keyed per store so subscribers only see their store's traffic.
type RedisBroker struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisBroker(url string, log zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{client: redis.NewClient(opts), log: log}, nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func channelFor(storeID string) string { return "plans:" + storeID }

func (b *RedisBroker) Publish(ctx context.Context, ev PlanEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(ev.StoreID), raw).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, storeID string) (<-chan PlanEvent, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(storeID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	out := make(chan PlanEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev PlanEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed plan event")
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
