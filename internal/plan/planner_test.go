package plan

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleetroute/internal/model"
	"fleetroute/internal/opt"
	"fleetroute/internal/orders"
	"fleetroute/internal/store"
)

func testPlanner() (*Planner, *store.Memory) {
	mem := store.NewMemory()
	return &Planner{
		Store:   mem,
		Source:  orders.NewSynthetic(rand.New(rand.NewSource(11))),
		Metrics: opt.NewMetricsStore(),
		Log:     zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
		},
	}, mem
}

func fastRequest(storeID string) Request {
	return Request{StoreID: storeID, Vehicles: 6, MaxIterations: 100, Seed: 7}
}

func TestPlanUnknownStore(t *testing.T) {
	pl, _ := testPlanner()
	_, _, err := pl.Plan(context.Background(), fastRequest("Store_Z"))
	if !errors.Is(err, store.ErrUnknownStore) {
		t.Fatalf("err = %v, want ErrUnknownStore", err)
	}
}

func TestPlanGeneratesOrdersWhenNonePending(t *testing.T) {
	pl, mem := testPlanner()
	ctx := context.Background()

	p, metrics, err := pl.Plan(ctx, fastRequest("Store_A"))
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.StoreID != "Store_A" {
		t.Fatalf("plan identity wrong: %+v", p)
	}
	if len(p.Solution.Routes) == 0 {
		t.Fatal("plan must carry at least one route")
	}
	if metrics.Iterations == 0 {
		t.Fatal("solver metrics must be populated")
	}

	saved, err := mem.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != p.ID {
		t.Fatal("plan must be persisted")
	}
}

func TestPlanMarksRoutedOrdersPlanned(t *testing.T) {
	pl, mem := testPlanner()
	ctx := context.Background()

	p, _, err := pl.Plan(ctx, fastRequest("Store_A"))
	if err != nil {
		t.Fatal(err)
	}
	pending, err := mem.PendingOrders(ctx, "Store_A")
	if err != nil {
		t.Fatal(err)
	}
	routed := map[string]bool{}
	for _, r := range p.Solution.Routes {
		for _, s := range r.Stops {
			routed[s.OrderID] = true
		}
	}
	for _, o := range pending {
		if routed[o.ID] {
			t.Fatalf("order %s was routed but is still pending", o.ID)
		}
	}
}

func TestPlanScheduleShape(t *testing.T) {
	pl, _ := testPlanner()

	p, _, err := pl.Plan(context.Background(), fastRequest("Store_A"))
	if err != nil {
		t.Fatal(err)
	}
	wantEvents := 0
	for _, r := range p.Solution.Routes {
		wantEvents += len(r.Stops) + 2
	}
	if len(p.Schedule) != wantEvents {
		t.Fatalf("schedule has %d events, want stops+2 per route = %d", len(p.Schedule), wantEvents)
	}
	if p.Summary.TotalRoutes != len(p.Routes) {
		t.Fatal("summary route count must match adjusted routes")
	}
	if p.Efficiency.RouteCompactness == "" {
		t.Fatal("efficiency must be populated")
	}
}

func TestPlanReproducibleWithSeed(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	batch := orders.NewSynthetic(rand.New(rand.NewSource(3))).Generate(
		model.StoreInfo{ID: "Store_A", Location: model.GeoPoint{Lat: 40.7128, Lon: -74.0060}}, 12, now())

	run := func() model.Plan {
		pl := &Planner{Store: store.NewMemory(), Log: zerolog.Nop(), Now: now}
		if err := pl.Store.CreateOrders(ctx, batch); err != nil {
			t.Fatal(err)
		}
		p, _, err := pl.Plan(ctx, fastRequest("Store_A"))
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	a, b := run(), run()
	if a.Solution.TotalDistanceM != b.Solution.TotalDistanceM {
		t.Fatal("same seed and orders must give the same solution cost")
	}
	if len(a.Schedule) != len(b.Schedule) {
		t.Fatal("same seed must give the same schedule shape")
	}
	for i := range a.Schedule {
		if !a.Schedule[i].At.Equal(b.Schedule[i].At) || a.Schedule[i].DurationMin != b.Schedule[i].DurationMin {
			t.Fatal("same seed must reproduce event times and durations")
		}
	}
}

func TestPlanRecordsSolverMetrics(t *testing.T) {
	pl, _ := testPlanner()

	p, _, err := pl.Plan(context.Background(), fastRequest("Store_B"))
	if err != nil {
		t.Fatal(err)
	}
	runs := pl.Metrics.ForStore("Store_B")
	if len(runs) != 1 || runs[0].PlanID != p.ID {
		t.Fatal("solver metrics must be recorded against the plan")
	}
}
