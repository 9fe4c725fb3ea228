// Package export renders plans as CSV for spreadsheets and downstream
// tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"fleetroute/internal/model"
)

// WriteRoutes emits one row per stop across all adjusted routes.
func WriteRoutes(w io.Writer, routes []model.AdjustedRoute) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"vehicle_id", "stop_seq", "order_id", "lat", "lon",
		"priority", "route_distance_km", "adjusted_time_min",
	}); err != nil {
		return err
	}
	for _, r := range routes {
		for i, s := range r.Stops {
			row := []string{
				fmt.Sprintf("%d", r.VehicleID),
				fmt.Sprintf("%d", i+1),
				s.OrderID,
				fmt.Sprintf("%.6f", s.Point.Lat),
				fmt.Sprintf("%.6f", s.Point.Lon),
				s.Priority.Label(),
				fmt.Sprintf("%.2f", r.DistanceKm()),
				fmt.Sprintf("%.1f", r.AdjustedTimeMin),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSchedule emits the timestamped event sequence.
func WriteSchedule(w io.Writer, events []model.ScheduleEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"vehicle_id", "stop_seq", "event", "at", "duration_min", "order_id"}); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			fmt.Sprintf("%d", e.VehicleID),
			fmt.Sprintf("%d", e.StopSeq),
			string(e.Kind),
			e.At.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", e.DurationMin),
			e.OrderID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary emits a single-row plan summary.
func WriteSummary(w io.Writer, s model.Summary, e model.Efficiency) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"store_id", "total_routes", "total_distance_km", "total_estimated_hours",
		"avg_deliveries_per_route", "traffic", "weather",
		"distance_per_delivery_km", "vehicle_utilization_pct", "compactness",
	}); err != nil {
		return err
	}
	row := []string{
		s.StoreID,
		fmt.Sprintf("%d", s.TotalRoutes),
		fmt.Sprintf("%.2f", s.TotalDistanceKm),
		fmt.Sprintf("%.2f", s.TotalEstimatedHours),
		fmt.Sprintf("%.1f", s.AvgDeliveriesPerRoute),
		s.TrafficConditions,
		s.WeatherImpact,
		fmt.Sprintf("%.2f", e.DistancePerDeliveryKm),
		fmt.Sprintf("%.1f", e.VehicleUtilizationPct),
		e.RouteCompactness,
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
