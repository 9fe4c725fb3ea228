package model

import (
	"fmt"
	"time"
)

// Priority ranks delivery urgency. Lower values are more urgent.
type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityHigh   Priority = 2
	PriorityMedium Priority = 3
	PriorityLow    Priority = 4
)

// priorityLabels is a fixed bidirectional table between priority weights and
// labels. Resolution never scans by value, so labels stay unambiguous even if
// two levels ever share a weight.
var priorityLabels = map[Priority]string{
	PriorityUrgent: "URGENT",
	PriorityHigh:   "HIGH",
	PriorityMedium: "MEDIUM",
	PriorityLow:    "LOW",
}

var priorityWeights = map[string]Priority{
	"URGENT": PriorityUrgent,
	"HIGH":   PriorityHigh,
	"MEDIUM": PriorityMedium,
	"LOW":    PriorityLow,
}

func (p Priority) Label() string {
	if s, ok := priorityLabels[p]; ok {
		return s
	}
	return "LOW"
}

// ParsePriority resolves a label back to its weight.
func ParsePriority(label string) (Priority, error) {
	if p, ok := priorityWeights[label]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown priority label: %s", label)
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StoreInfo describes a depot store in the registry.
type StoreInfo struct {
	ID       string   `json:"id"`
	Location GeoPoint `json:"location"`
	Capacity int      `json:"capacity"`
}

// Order is a pending customer delivery anchored at a store.
type Order struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"storeId"`
	Customer    GeoPoint  `json:"customer"`
	Items       []string  `json:"items,omitempty"`
	Priority    Priority  `json:"priority"`
	PlacedAt    time.Time `json:"placedAt"`
	PrepTimeMin int       `json:"prepTimeMin,omitempty"`
	Window      string    `json:"window,omitempty"` // ASAP, 2-hour, 4-hour
	Status      string    `json:"status,omitempty"`
}

type LocationKind string

const (
	LocationDepot    LocationKind = "depot"
	LocationCustomer LocationKind = "customer"
)

// Location is one indexed node in a routing problem. Index 0 is always the
// depot; customer locations carry the order they serve.
type Location struct {
	Index    int          `json:"index"`
	Point    GeoPoint     `json:"point"`
	Kind     LocationKind `json:"kind"`
	OrderID  string       `json:"orderId,omitempty"`
	Priority Priority     `json:"priority,omitempty"`
}

// Loop is a closed vehicle path. It structurally starts and ends at the depot
// (index 0); only interior customer visits are stored, so a Loop cannot be
// built that breaks the depot anchoring invariant.
type Loop struct {
	interior []int
}

func NewLoop(customers ...int) Loop {
	return Loop{interior: append([]int(nil), customers...)}
}

// Interior returns the customer location indices in visiting order.
func (l Loop) Interior() []int {
	return append([]int(nil), l.interior...)
}

// Indices returns the full closed path including both depot endpoints.
func (l Loop) Indices() []int {
	out := make([]int, 0, len(l.interior)+2)
	out = append(out, 0)
	out = append(out, l.interior...)
	out = append(out, 0)
	return out
}

// Len is the number of customer stops.
func (l Loop) Len() int { return len(l.interior) }

// Stop is one customer visit on an extracted route.
type Stop struct {
	LocationIndex int      `json:"locationIndex"`
	Point         GeoPoint `json:"point"`
	OrderID       string   `json:"orderId,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
}

// Route is a single vehicle's closed-loop delivery run.
type Route struct {
	VehicleID int    `json:"vehicleId"`
	Path      Loop   `json:"-"`
	Stops     []Stop `json:"stops"`
	DistanceM int    `json:"distanceM"`
	Load      int    `json:"load"`
}

// DistanceKm is the route distance in kilometers.
func (r Route) DistanceKm() float64 { return float64(r.DistanceM) / 1000.0 }

// Solution is the set of non-empty routes produced by one solver call.
type Solution struct {
	Routes         []Route `json:"routes"`
	TotalDistanceM int     `json:"totalDistanceM"`
	VehiclesUsed   int     `json:"vehiclesUsed"`
}

// AdjustedRoute overlays real-time traffic and weather on a Route.
type AdjustedRoute struct {
	Route
	BaseTimeMin          float64   `json:"baseTimeMin"`
	TrafficFactor        float64   `json:"trafficFactor"`
	WeatherImpact        float64   `json:"weatherImpact"`
	DelayMin             int       `json:"delayMin"`
	AdjustedTimeMin      float64   `json:"adjustedTimeMin"`
	RecommendedDeparture time.Time `json:"recommendedDeparture"`
}

type EventKind string

const (
	EventDepotDepart    EventKind = "depot_depart"
	EventCustomerArrive EventKind = "customer_arrive"
	EventDepotReturn    EventKind = "depot_return"
)

// ScheduleEvent is one timestamped occurrence in a vehicle's itinerary.
type ScheduleEvent struct {
	VehicleID   int       `json:"vehicleId"`
	StopSeq     int       `json:"stopSeq"`
	Kind        EventKind `json:"kind"`
	At          time.Time `json:"at"`
	DurationMin int       `json:"durationMin"`
	OrderID     string    `json:"orderId,omitempty"`
}

// Summary aggregates one plan for external consumption.
type Summary struct {
	StoreID               string    `json:"storeId"`
	TotalRoutes           int       `json:"totalRoutes"`
	TotalDistanceKm       float64   `json:"totalDistanceKm"`
	TotalEstimatedHours   float64   `json:"totalEstimatedHours"`
	AvgDeliveriesPerRoute float64   `json:"avgDeliveriesPerRoute"`
	TrafficConditions     string    `json:"trafficConditions"`
	WeatherImpact         string    `json:"weatherImpact"`
	EarliestDeparture     string    `json:"earliestDeparture"`
	GeneratedAt           time.Time `json:"generatedAt"`
}

// Efficiency carries derived per-plan efficiency figures.
type Efficiency struct {
	DistancePerDeliveryKm float64 `json:"distancePerDeliveryKm"`
	TimePerDeliveryMin    float64 `json:"timePerDeliveryMin"`
	VehicleUtilizationPct float64 `json:"vehicleUtilizationPct"`
	RouteCompactness      string  `json:"routeCompactness"`
}

// Plan is a fully assembled optimization result for one store.
type Plan struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"storeId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Solution   Solution        `json:"solution"`
	Routes     []AdjustedRoute `json:"routes"`
	Schedule   []ScheduleEvent `json:"schedule"`
	Summary    Summary         `json:"summary"`
	Efficiency Efficiency      `json:"efficiency"`
}

// Subscription registers a webhook target for plan events.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
