// Package plan orchestrates one optimization request end to end: order
// snapshot, solve, real-time adjustment, scheduling, and persistence.
package plan

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleetroute/internal/model"
	"fleetroute/internal/opt"
	"fleetroute/internal/orders"
	"fleetroute/internal/realtime"
	"fleetroute/internal/report"
	"fleetroute/internal/schedule"
	"fleetroute/internal/store"
	"fleetroute/internal/webhooks"
)

const (
	defaultVehicles        = 3
	defaultCapacity        = 20
	defaultSyntheticOrders = 20
)

// Request parameterizes one planning run. Zero fields take service defaults.
type Request struct {
	StoreID       string        `json:"storeId"`
	Vehicles      int           `json:"vehicles,omitempty"`
	Capacity      int           `json:"capacity,omitempty"`
	TimeBudget    time.Duration `json:"-"`
	TimeBudgetSec int           `json:"timeBudgetSec,omitempty"`
	MaxIterations int           `json:"maxIterations,omitempty"`
	Seed          int64         `json:"seed,omitempty"`
}

// Planner builds delivery plans. It owns no request state; every call is
// independent and safe to run concurrently.
type Planner struct {
	Store     store.Store
	Source    *orders.Synthetic
	Metrics   *opt.MetricsStore
	Publisher *webhooks.Publisher
	Log       zerolog.Logger
	Now       func() time.Time

	// DefaultBudget applies when a request names no time budget. Zero falls
	// through to the solver's own default.
	DefaultBudget time.Duration
}

func (pl *Planner) now() time.Time {
	if pl.Now != nil {
		return pl.Now()
	}
	return time.Now()
}

// Plan runs the full pipeline for one store and persists the result. On any
// error nothing is persisted and the zero Plan is returned.
func (pl *Planner) Plan(ctx context.Context, req Request) (model.Plan, opt.Metrics, error) {
	if req.Vehicles <= 0 {
		req.Vehicles = defaultVehicles
	}
	if req.Capacity <= 0 {
		req.Capacity = defaultCapacity
	}
	if req.TimeBudget <= 0 && req.TimeBudgetSec > 0 {
		req.TimeBudget = time.Duration(req.TimeBudgetSec) * time.Second
	}
	if req.TimeBudget <= 0 {
		req.TimeBudget = pl.DefaultBudget
	}

	info, err := pl.Store.GetStore(ctx, req.StoreID)
	if err != nil {
		return model.Plan{}, opt.Metrics{}, err
	}

	pending, err := pl.Store.PendingOrders(ctx, req.StoreID)
	if err != nil {
		return model.Plan{}, opt.Metrics{}, fmt.Errorf("load pending orders: %w", err)
	}
	if len(pending) == 0 && pl.Source != nil {
		pending = pl.Source.Generate(info, defaultSyntheticOrders, pl.now())
		if err := pl.Store.CreateOrders(ctx, pending); err != nil {
			return model.Plan{}, opt.Metrics{}, fmt.Errorf("persist generated orders: %w", err)
		}
		pl.Log.Info().Str("store", req.StoreID).Int("orders", len(pending)).
			Msg("no pending orders, generated synthetic batch")
	}

	prob, err := opt.BuildProblem(info, req.Vehicles, req.Capacity, pending)
	if err != nil {
		return model.Plan{}, opt.Metrics{}, err
	}

	sol, metrics, err := opt.Solve(prob, opt.Options{
		TimeBudget:    req.TimeBudget,
		MaxIterations: req.MaxIterations,
		Seed:          req.Seed,
	})
	if err != nil {
		pl.emit(ctx, webhooks.EventPlanFailed, map[string]any{
			"storeId": req.StoreID,
			"error":   err.Error(),
		})
		return model.Plan{}, metrics, err
	}

	// Conditions sampling and schedule jitter share one seeded source so a
	// pinned seed reproduces the whole plan, not just the routes.
	seed := req.Seed
	if seed == 0 {
		seed = pl.now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	adj := realtime.NewAdjuster(pl.now, rng)
	adjusted, cond := adj.AdjustAll(sol)
	events := schedule.NewBuilder(pl.now, rng).Build(adjusted)

	now := pl.now()
	p := model.Plan{
		ID:         uuid.NewString(),
		StoreID:    req.StoreID,
		CreatedAt:  now.UTC(),
		Solution:   sol,
		Routes:     adjusted,
		Schedule:   events,
		Summary:    report.BuildSummary(req.StoreID, adjusted, cond, now),
		Efficiency: report.BuildEfficiency(adjusted, req.Capacity),
	}

	if err := pl.Store.SavePlan(ctx, p); err != nil {
		return model.Plan{}, metrics, fmt.Errorf("save plan: %w", err)
	}
	var planned []string
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			if s.OrderID != "" {
				planned = append(planned, s.OrderID)
			}
		}
	}
	if err := pl.Store.MarkOrdersPlanned(ctx, planned); err != nil {
		pl.Log.Error().Err(err).Str("plan", p.ID).Msg("mark orders planned")
	}
	if pl.Metrics != nil {
		pl.Metrics.Record(req.StoreID, p.ID, metrics)
	}
	pl.emit(ctx, webhooks.EventPlanCreated, map[string]any{
		"planId":          p.ID,
		"storeId":         p.StoreID,
		"routes":          len(p.Solution.Routes),
		"totalDistanceKm": p.Summary.TotalDistanceKm,
	})
	pl.Log.Info().Str("plan", p.ID).Str("store", req.StoreID).
		Int("routes", len(sol.Routes)).Int("iterations", metrics.Iterations).
		Dur("elapsed", metrics.Elapsed).Msg("plan created")
	return p, metrics, nil
}

func (pl *Planner) emit(ctx context.Context, event string, payload map[string]any) {
	if pl.Publisher != nil {
		pl.Publisher.Emit(ctx, event, payload)
	}
}
