package store

import (
	"context"
	"testing"
	"time"

	"fleetroute/internal/model"
	"fleetroute/internal/predict"
)

func TestMemoryStoreRegistry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	stores, err := m.ListStores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stores) != 5 {
		t.Fatalf("seeded %d stores, want 5", len(stores))
	}

	s, err := m.GetStore(ctx, "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	if s.Capacity != 500 {
		t.Fatalf("Store_A capacity = %d, want 500", s.Capacity)
	}

	if _, err := m.GetStore(ctx, "Store_Z"); err != ErrUnknownStore {
		t.Fatalf("err = %v, want ErrUnknownStore", err)
	}
}

func TestMemoryOrdersLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	orders := []model.Order{
		{ID: "b", StoreID: "Store_A", PlacedAt: base.Add(time.Hour)},
		{ID: "a", StoreID: "Store_A", PlacedAt: base},
		{ID: "c", StoreID: "Store_B", PlacedAt: base},
	}
	if err := m.CreateOrders(ctx, orders); err != nil {
		t.Fatal(err)
	}

	pending, err := m.PendingOrders(ctx, "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != "a" {
		t.Fatal("pending orders must come back oldest first")
	}

	if err := m.MarkOrdersPlanned(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	pending, _ = m.PendingOrders(ctx, "Store_A")
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatal("planned orders must leave the pending set")
	}

	if err := m.CreateOrders(ctx, []model.Order{{StoreID: "nope"}}); err != ErrUnknownStore {
		t.Fatalf("err = %v, want ErrUnknownStore", err)
	}
}

func TestMemoryPlans(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetPlan(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := m.SavePlan(ctx, model.Plan{ID: id, StoreID: "Store_A"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.SavePlan(ctx, model.Plan{ID: "p4", StoreID: "Store_B"}); err != nil {
		t.Fatal(err)
	}

	plans, err := m.ListPlans(ctx, "Store_A", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 || plans[0].ID != "p3" {
		t.Fatal("plans must list newest first with the limit applied")
	}

	all, _ := m.ListPlans(ctx, "", 0)
	if len(all) != 4 {
		t.Fatalf("unfiltered list = %d, want 4", len(all))
	}
}

func TestMemorySubscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateSubscription(ctx, model.Subscription{
		URL:    "https://example.com/hook",
		Events: []string{"plan.created"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("subscription must get an id")
	}
	if _, err := m.CreateSubscription(ctx, model.Subscription{
		URL:    "https://example.com/all",
		Events: []string{"*"},
	}); err != nil {
		t.Fatal(err)
	}

	subs, err := m.SubscriptionsForEvent(ctx, "plan.created")
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("matched %d subscriptions, want 2 (exact and wildcard)", len(subs))
	}
	subs, _ = m.SubscriptionsForEvent(ctx, "plan.failed")
	if len(subs) != 1 {
		t.Fatalf("matched %d subscriptions, want only the wildcard", len(subs))
	}

	if err := m.DeleteSubscription(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteSubscription(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	if err := m.EnqueueWebhook(ctx, WebhookDelivery{ID: "due", NextAttempt: now.Add(-time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if err := m.EnqueueWebhook(ctx, WebhookDelivery{ID: "later", NextAttempt: now.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	due, err := m.DueWebhookDeliveries(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Fatalf("due = %v, want just the overdue delivery", due)
	}

	if err := m.MarkWebhookDelivered(ctx, "due"); err != nil {
		t.Fatal(err)
	}
	due, _ = m.DueWebhookDeliveries(ctx, now, 10)
	if len(due) != 0 {
		t.Fatal("delivered webhooks must leave the due set")
	}

	if err := m.FailWebhookDelivery(ctx, "later", 5, time.Time{}, "boom"); err != nil {
		t.Fatal(err)
	}
	list, _ := m.ListWebhookDeliveries(ctx, 10)
	for _, d := range list {
		if d.ID == "later" && d.Status != "failed" {
			t.Fatal("a failure with no next attempt must mark the delivery failed")
		}
	}
}

func TestMemorySalesHistory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		err := m.AppendSales(ctx, predict.SalesRecord{
			StoreID: "Store_A", Day: base.AddDate(0, 0, i), Orders: i,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	hist, err := m.SalesHistory(ctx, "Store_A", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 || hist[2].Orders != 9 {
		t.Fatal("history must return the trailing window oldest first")
	}
	if _, err := m.SalesHistory(ctx, "Store_Z", 3); err != ErrUnknownStore {
		t.Fatalf("err = %v, want ErrUnknownStore", err)
	}
}
