// Package schedule turns adjusted routes into timestamped itineraries.
package schedule

import (
	"math/rand"
	"time"

	"fleetroute/internal/model"
)

const (
	// loadPrepMin is the loading window between plan creation and the first
	// vehicle leaving the depot.
	loadPrepMin = 10
	// interStopMin is a flat travel allowance between consecutive stops. It
	// deliberately ignores per-arc distance; adjusted route totals carry the
	// distance-aware estimate.
	interStopMin = 15
	returnDurMin = 5
)

// Builder emits per-vehicle event sequences. Clock and randomness are
// injectable for deterministic tests.
type Builder struct {
	now func() time.Time
	rng *rand.Rand
}

func NewBuilder(now func() time.Time, rng *rand.Rand) *Builder {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{now: now, rng: rng}
}

// Build walks each route through its state sequence: one depot departure,
// one arrival per customer, one depot return. A route with N stops yields
// N+2 events with strictly increasing timestamps.
func (b *Builder) Build(routes []model.AdjustedRoute) []model.ScheduleEvent {
	events := make([]model.ScheduleEvent, 0)
	start := b.now().Add(loadPrepMin * time.Minute)
	for _, r := range routes {
		seq := 0
		cur := start
		events = append(events, model.ScheduleEvent{
			VehicleID:   r.VehicleID,
			StopSeq:     seq,
			Kind:        model.EventDepotDepart,
			At:          cur,
			DurationMin: loadPrepMin,
		})
		for _, stop := range r.Stops {
			seq++
			cur = cur.Add(interStopMin * time.Minute)
			events = append(events, model.ScheduleEvent{
				VehicleID:   r.VehicleID,
				StopSeq:     seq,
				Kind:        model.EventCustomerArrive,
				At:          cur,
				DurationMin: b.rng.Intn(6) + 3,
				OrderID:     stop.OrderID,
			})
		}
		seq++
		cur = cur.Add(interStopMin * time.Minute)
		events = append(events, model.ScheduleEvent{
			VehicleID:   r.VehicleID,
			StopSeq:     seq,
			Kind:        model.EventDepotReturn,
			At:          cur,
			DurationMin: returnDurMin,
		})
	}
	return events
}
