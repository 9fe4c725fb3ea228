// Package realtime overlays current traffic and weather conditions on
// optimized routes.
package realtime

import (
	"math/rand"
	"time"

	"fleetroute/internal/model"
)

const (
	minutesPerKm    = 2.5
	minutesPerStop  = 5.0
	rushTraffic     = 1.3
	normalTraffic   = 1.0
	delayThreshold  = 1.1
	departureLeadUp = 10 * time.Minute
)

var weatherLevels = []float64{1.0, 1.1, 1.2}

// Conditions is one sample of the external factors applied to a plan. All
// routes of a plan share the same sample.
type Conditions struct {
	TrafficFactor float64 `json:"trafficFactor"`
	WeatherImpact float64 `json:"weatherImpact"`
}

// Adjuster estimates adjusted travel times. The clock and randomness source
// are injectable so tests can fix both.
type Adjuster struct {
	now func() time.Time
	rng *rand.Rand
}

func NewAdjuster(now func() time.Time, rng *rand.Rand) *Adjuster {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Adjuster{now: now, rng: rng}
}

// CurrentConditions samples traffic and weather once. Rush hour covers
// 07:00-09:59 and 17:00-19:59 local time.
func (a *Adjuster) CurrentConditions() Conditions {
	hour := a.now().Hour()
	traffic := normalTraffic
	if (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19) {
		traffic = rushTraffic
	}
	return Conditions{
		TrafficFactor: traffic,
		WeatherImpact: weatherLevels[a.rng.Intn(len(weatherLevels))],
	}
}

// AdjustRoute computes the adjusted travel time for one route under the
// given conditions. The base estimate is distance plus a fixed per-stop
// service allowance; an incident delay of 5-20 minutes is added only when
// traffic is heavy.
func (a *Adjuster) AdjustRoute(r model.Route, cond Conditions) model.AdjustedRoute {
	base := r.DistanceKm()*minutesPerKm + float64(r.Load)*minutesPerStop
	delay := 0
	if cond.TrafficFactor > delayThreshold {
		delay = a.rng.Intn(16) + 5
	}
	return model.AdjustedRoute{
		Route:                r,
		BaseTimeMin:          base,
		TrafficFactor:        cond.TrafficFactor,
		WeatherImpact:        cond.WeatherImpact,
		DelayMin:             delay,
		AdjustedTimeMin:      base*cond.TrafficFactor*cond.WeatherImpact + float64(delay),
		RecommendedDeparture: a.now().Add(departureLeadUp),
	}
}

// AdjustAll applies one conditions sample to every route of a solution.
func (a *Adjuster) AdjustAll(sol model.Solution) ([]model.AdjustedRoute, Conditions) {
	cond := a.CurrentConditions()
	out := make([]model.AdjustedRoute, 0, len(sol.Routes))
	for _, r := range sol.Routes {
		out = append(out, a.AdjustRoute(r, cond))
	}
	return out, cond
}
