// Package report assembles human-facing plan summaries and efficiency
// figures from solver output.
package report

import (
	"time"

	"fleetroute/internal/model"
	"fleetroute/internal/realtime"
)

// TrafficLabel maps a traffic factor to a reader-facing condition label.
func TrafficLabel(factor float64) string {
	switch {
	case factor > 1.2:
		return "Heavy"
	case factor > 1.0:
		return "Moderate"
	default:
		return "Light"
	}
}

// WeatherLabel maps a weather impact multiplier to a severity label.
func WeatherLabel(impact float64) string {
	switch {
	case impact > 1.15:
		return "High"
	case impact > 1.05:
		return "Moderate"
	default:
		return "Low"
	}
}

// BuildSummary aggregates a plan's routes into a Summary.
func BuildSummary(storeID string, routes []model.AdjustedRoute, cond realtime.Conditions, now time.Time) model.Summary {
	s := model.Summary{
		StoreID:           storeID,
		TotalRoutes:       len(routes),
		TrafficConditions: TrafficLabel(cond.TrafficFactor),
		WeatherImpact:     WeatherLabel(cond.WeatherImpact),
		GeneratedAt:       now.UTC(),
	}
	if len(routes) == 0 {
		return s
	}
	totalKm, totalMin, deliveries := 0.0, 0.0, 0
	earliest := routes[0].RecommendedDeparture
	for _, r := range routes {
		totalKm += r.DistanceKm()
		totalMin += r.AdjustedTimeMin
		deliveries += len(r.Stops)
		if r.RecommendedDeparture.Before(earliest) {
			earliest = r.RecommendedDeparture
		}
	}
	s.TotalDistanceKm = totalKm
	s.TotalEstimatedHours = totalMin / 60.0
	s.AvgDeliveriesPerRoute = float64(deliveries) / float64(len(routes))
	s.EarliestDeparture = earliest.Format("15:04")
	return s
}

// BuildEfficiency derives per-delivery and utilization figures. Capacity is
// the per-vehicle stop capacity the plan was solved with.
func BuildEfficiency(routes []model.AdjustedRoute, capacity int) model.Efficiency {
	var e model.Efficiency
	totalKm, totalMin, deliveries, usedSlots := 0.0, 0.0, 0, 0
	for _, r := range routes {
		totalKm += r.DistanceKm()
		totalMin += r.AdjustedTimeMin
		deliveries += len(r.Stops)
		usedSlots += r.Load
	}
	if deliveries == 0 {
		e.RouteCompactness = "High"
		return e
	}
	e.DistancePerDeliveryKm = totalKm / float64(deliveries)
	e.TimePerDeliveryMin = totalMin / float64(deliveries)
	if capacity > 0 && len(routes) > 0 {
		e.VehicleUtilizationPct = 100.0 * float64(usedSlots) / float64(capacity*len(routes))
	}
	switch {
	case e.DistancePerDeliveryKm < 15:
		e.RouteCompactness = "High"
	case e.DistancePerDeliveryKm < 25:
		e.RouteCompactness = "Medium"
	default:
		e.RouteCompactness = "Low"
	}
	return e
}
