package api

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBrokerFanout(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch1, cancel1, err := b.Subscribe(ctx, "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel1()
	ch2, cancel2, err := b.Subscribe(ctx, "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel2()
	other, cancelOther, err := b.Subscribe(ctx, "Store_B")
	if err != nil {
		t.Fatal(err)
	}
	defer cancelOther()

	ev := PlanEvent{Type: "plan.created", StoreID: "Store_A", PlanID: "p1", At: time.Now()}
	if err := b.Publish(ctx, ev); err != nil {
		t.Fatal(err)
	}

	for _, ch := range []<-chan PlanEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.PlanID != "p1" {
				t.Fatalf("got plan %s, want p1", got.PlanID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
	select {
	case got := <-other:
		t.Fatalf("Store_B subscriber received %v", got)
	default:
	}
}

func TestMemoryBrokerCancelClosesChannel(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel, err := b.Subscribe(context.Background(), "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	cancel() // double cancel must be safe
	if _, open := <-ch; open {
		t.Fatal("cancel must close the subscriber channel")
	}
	if err := b.Publish(context.Background(), PlanEvent{StoreID: "Store_A"}); err != nil {
		t.Fatal("publishing with no subscribers must not fail")
	}
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel, err := b.Subscribe(context.Background(), "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := b.Publish(context.Background(), PlanEvent{StoreID: "Store_A"}); err != nil {
			t.Fatal(err)
		}
	}
	// The subscriber buffer holds 16; the rest are dropped, not blocked on.
	if got := len(ch); got != 16 {
		t.Fatalf("buffered %d events, want 16 with overflow dropped", got)
	}
}
