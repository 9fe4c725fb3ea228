package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"fleetroute/internal/model"
)

func sampleAdjusted() []model.AdjustedRoute {
	return []model.AdjustedRoute{{
		Route: model.Route{
			VehicleID: 0,
			Stops: []model.Stop{
				{OrderID: "o1", Point: model.GeoPoint{Lat: 40.71, Lon: -74.00}, Priority: model.PriorityUrgent},
				{OrderID: "o2", Point: model.GeoPoint{Lat: 40.72, Lon: -74.01}, Priority: model.PriorityHigh},
			},
			DistanceM: 8000,
			Load:      2,
		},
		AdjustedTimeMin: 45.5,
	}}
}

func TestWriteRoutes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRoutes(&buf, sampleAdjusted()); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus one per stop", len(rows))
	}
	if rows[0][0] != "vehicle_id" {
		t.Fatalf("header starts with %s, want vehicle_id", rows[0][0])
	}
	if rows[1][2] != "o1" || rows[2][2] != "o2" {
		t.Fatal("stop rows must carry order ids in visiting order")
	}
	if rows[1][5] != "URGENT" {
		t.Fatalf("priority column = %s, want URGENT", rows[1][5])
	}
}

func TestWriteSchedule(t *testing.T) {
	events := []model.ScheduleEvent{
		{VehicleID: 0, StopSeq: 0, Kind: model.EventDepotDepart,
			At: time.Date(2026, 8, 20, 9, 10, 0, 0, time.UTC), DurationMin: 10},
		{VehicleID: 0, StopSeq: 1, Kind: model.EventCustomerArrive,
			At: time.Date(2026, 8, 20, 9, 25, 0, 0, time.UTC), DurationMin: 4, OrderID: "o1"},
	}
	var buf bytes.Buffer
	if err := WriteSchedule(&buf, events); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1][2] != "depot_depart" || rows[1][3] != "2026-08-20 09:10" {
		t.Fatalf("unexpected first event row: %v", rows[1])
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	s := model.Summary{StoreID: "Store_A", TotalRoutes: 2, TotalDistanceKm: 30, TrafficConditions: "Heavy", WeatherImpact: "Low"}
	e := model.Efficiency{DistancePerDeliveryKm: 5, VehicleUtilizationPct: 60, RouteCompactness: "High"}
	if err := WriteSummary(&buf, s, e); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one summary row", len(rows))
	}
	if rows[1][0] != "Store_A" || rows[1][9] != "High" {
		t.Fatalf("unexpected summary row: %v", rows[1])
	}
}
