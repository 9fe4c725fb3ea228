package schedule

import (
	"math/rand"
	"testing"
	"time"

	"fleetroute/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
}

func adjustedRoute(vehicle, stops int) model.AdjustedRoute {
	r := model.Route{VehicleID: vehicle, Load: stops}
	for i := 0; i < stops; i++ {
		r.Stops = append(r.Stops, model.Stop{LocationIndex: i + 1, OrderID: "ord"})
	}
	return model.AdjustedRoute{Route: r}
}

func TestBuildEventCountAndShape(t *testing.T) {
	b := NewBuilder(fixedNow, rand.New(rand.NewSource(1)))
	events := b.Build([]model.AdjustedRoute{adjustedRoute(0, 2)})

	if len(events) != 4 {
		t.Fatalf("got %d events, want stops+2 = 4", len(events))
	}
	if events[0].Kind != model.EventDepotDepart {
		t.Fatalf("first event = %s, want depot_depart", events[0].Kind)
	}
	if events[len(events)-1].Kind != model.EventDepotReturn {
		t.Fatalf("last event = %s, want depot_return", events[len(events)-1].Kind)
	}
	for _, e := range events[1 : len(events)-1] {
		if e.Kind != model.EventCustomerArrive {
			t.Fatalf("middle event = %s, want customer_arrive", e.Kind)
		}
		if e.OrderID == "" {
			t.Fatal("arrival events must carry the order id")
		}
		if e.DurationMin < 3 || e.DurationMin > 8 {
			t.Fatalf("service duration %d outside [3,8]", e.DurationMin)
		}
	}
}

func TestBuildTimestampsStrictlyIncrease(t *testing.T) {
	b := NewBuilder(fixedNow, rand.New(rand.NewSource(2)))
	events := b.Build([]model.AdjustedRoute{adjustedRoute(0, 5)})

	for i := 1; i < len(events); i++ {
		if !events[i].At.After(events[i-1].At) {
			t.Fatalf("event %d at %v not after event %d at %v",
				i, events[i].At, i-1, events[i-1].At)
		}
	}
}

func TestBuildDepartureAndSpacing(t *testing.T) {
	b := NewBuilder(fixedNow, rand.New(rand.NewSource(3)))
	events := b.Build([]model.AdjustedRoute{adjustedRoute(2, 1)})

	wantDepart := fixedNow().Add(10 * time.Minute)
	if !events[0].At.Equal(wantDepart) {
		t.Fatalf("departure at %v, want %v", events[0].At, wantDepart)
	}
	if got := events[1].At.Sub(events[0].At); got != 15*time.Minute {
		t.Fatalf("first leg takes %v, want 15m", got)
	}
	if got := events[2].At.Sub(events[1].At); got != 15*time.Minute {
		t.Fatalf("return leg takes %v, want 15m", got)
	}
	if events[2].DurationMin != 5 {
		t.Fatalf("return duration = %d, want 5", events[2].DurationMin)
	}
	for _, e := range events {
		if e.VehicleID != 2 {
			t.Fatalf("vehicle id = %d, want 2", e.VehicleID)
		}
	}
}

func TestBuildMultipleVehiclesShareStart(t *testing.T) {
	b := NewBuilder(fixedNow, rand.New(rand.NewSource(4)))
	events := b.Build([]model.AdjustedRoute{adjustedRoute(0, 1), adjustedRoute(1, 3)})

	var departs []model.ScheduleEvent
	for _, e := range events {
		if e.Kind == model.EventDepotDepart {
			departs = append(departs, e)
		}
	}
	if len(departs) != 2 {
		t.Fatalf("got %d departures, want 2", len(departs))
	}
	if !departs[0].At.Equal(departs[1].At) {
		t.Fatal("all vehicles leave the depot after the same loading window")
	}
}
