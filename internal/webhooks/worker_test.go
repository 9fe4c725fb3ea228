package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleetroute/internal/model"
	"fleetroute/internal/store"
)

func subscriptionFor(url string) model.Subscription {
	return model.Subscription{URL: url, Events: []string{EventPlanCreated}, Secret: "hush"}
}

func TestWorkerDeliversSignedPayload(t *testing.T) {
	var gotSig atomic.Value
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		gotSig.Store(r.Header.Get("X-Fleetroute-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	ctx := context.Background()
	err := mem.EnqueueWebhook(ctx, store.WebhookDelivery{
		ID:          "d1",
		Event:       EventPlanCreated,
		URL:         srv.URL,
		Secret:      "hush",
		Payload:     map[string]any{"planId": "p1"},
		NextAttempt: time.Now().Add(-time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}

	w := NewWorker(mem, zerolog.Nop())
	w.drain(ctx)

	body, _ := gotBody.Load().([]byte)
	if body == nil {
		t.Fatal("webhook endpoint was never called")
	}
	sig, _ := gotSig.Load().(string)
	if !Verify("hush", body, sig) {
		t.Fatal("delivery must carry a valid HMAC signature")
	}

	due, _ := mem.DueWebhookDeliveries(ctx, time.Now().Add(time.Hour), 10)
	if len(due) != 0 {
		t.Fatal("delivered webhook must not stay queued")
	}
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.EnqueueWebhook(ctx, store.WebhookDelivery{
		ID:          "d1",
		Event:       EventPlanCreated,
		URL:         srv.URL,
		NextAttempt: time.Now().Add(-time.Second),
	}); err != nil {
		t.Fatal(err)
	}

	w := NewWorker(mem, zerolog.Nop())
	w.drain(ctx)

	list, _ := mem.ListWebhookDeliveries(ctx, 10)
	if len(list) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(list))
	}
	d := list[0]
	if d.Status != "pending" || d.Attempts != 1 {
		t.Fatalf("after one failure: status=%s attempts=%d, want pending/1", d.Status, d.Attempts)
	}
	if !d.NextAttempt.After(time.Now().Add(30 * time.Second)) {
		t.Fatal("retry must back off by at least the first backoff step")
	}
	if d.LastError == "" {
		t.Fatal("failure reason must be recorded")
	}
}

func TestWorkerAbandonsAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.EnqueueWebhook(ctx, store.WebhookDelivery{
		ID:          "d1",
		Event:       EventPlanCreated,
		URL:         srv.URL,
		Attempts:    maxAttempts - 1,
		NextAttempt: time.Now().Add(-time.Second),
	}); err != nil {
		t.Fatal(err)
	}

	w := NewWorker(mem, zerolog.Nop())
	w.drain(ctx)

	list, _ := mem.ListWebhookDeliveries(ctx, 10)
	if list[0].Status != "failed" {
		t.Fatalf("status = %s, want failed after max attempts", list[0].Status)
	}
}

func TestPublisherEnqueuesPerSubscriber(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	for _, url := range []string{"https://a.example/hook", "https://b.example/hook"} {
		if _, err := mem.CreateSubscription(ctx, subscriptionFor(url)); err != nil {
			t.Fatal(err)
		}
	}

	p := NewPublisher(mem, zerolog.Nop())
	p.Emit(ctx, EventPlanCreated, map[string]any{"planId": "p1"})

	list, _ := mem.ListWebhookDeliveries(ctx, 10)
	if len(list) != 2 {
		t.Fatalf("enqueued %d deliveries, want one per subscriber", len(list))
	}
	for _, d := range list {
		if d.Event != EventPlanCreated {
			t.Fatalf("delivery event = %s, want %s", d.Event, EventPlanCreated)
		}
	}
}
