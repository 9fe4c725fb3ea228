package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fleetroute/internal/metrics"
	"fleetroute/internal/store"
)

const (
	maxAttempts  = 5
	pollInterval = 5 * time.Second
	sendTimeout  = 10 * time.Second
)

// Worker drains due webhook deliveries on a ticker and POSTs them with an
// HMAC signature, backing off exponentially on failure.
type Worker struct {
	store  store.Store
	client *http.Client
	log    zerolog.Logger
}

func NewWorker(s store.Store, log zerolog.Logger) *Worker {
	return &Worker{
		store:  s,
		client: &http.Client{Timeout: sendTimeout},
		log:    log,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	due, err := w.store.DueWebhookDeliveries(ctx, time.Now().UTC(), 50)
	if err != nil {
		w.log.Error().Err(err).Msg("fetch due webhook deliveries")
		return
	}
	for _, d := range due {
		if err := w.send(ctx, d); err != nil {
			w.retryOrFail(ctx, d, err)
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
		if err := w.store.MarkWebhookDelivered(ctx, d.ID); err != nil {
			w.log.Error().Err(err).Str("delivery", d.ID).Msg("mark webhook delivered")
		}
	}
}

func (w *Worker) send(ctx context.Context, d store.WebhookDelivery) error {
	body, err := json.Marshal(map[string]any{
		"event":      d.Event,
		"deliveryId": d.ID,
		"data":       d.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Fleetroute-Event", d.Event)
	if d.Secret != "" {
		req.Header.Set("X-Fleetroute-Signature", Sign(d.Secret, body))
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) retryOrFail(ctx context.Context, d store.WebhookDelivery, sendErr error) {
	attempts := d.Attempts + 1
	var next time.Time
	if attempts < maxAttempts {
		// 1m, 2m, 4m, 8m between retries.
		backoff := time.Minute << (attempts - 1)
		next = time.Now().UTC().Add(backoff)
	}
	if err := w.store.FailWebhookDelivery(ctx, d.ID, attempts, next, sendErr.Error()); err != nil {
		w.log.Error().Err(err).Str("delivery", d.ID).Msg("record webhook failure")
		return
	}
	ev := w.log.Warn().Str("delivery", d.ID).Str("url", d.URL).Int("attempts", attempts).Err(sendErr)
	if next.IsZero() {
		metrics.WebhookDeliveries.WithLabelValues("abandoned").Inc()
		ev.Msg("webhook delivery abandoned")
	} else {
		metrics.WebhookDeliveries.WithLabelValues("retried").Inc()
		ev.Time("nextAttempt", next).Msg("webhook delivery failed, will retry")
	}
}
