package opt

import (
	"fleetroute/internal/geo"
	"fleetroute/internal/model"
)

const (
	// DepotIndex is the fixed location index of the depot.
	DepotIndex = 0
	// DefaultMaxRoutePriority bounds cumulative priority weight per route.
	// It is a soft guardrail on how many stops of a given urgency can chain
	// on one vehicle; it does not impose a visiting order.
	DefaultMaxRoutePriority = 10

	fallbackOrderCount = 10
)

// Problem is one self-contained routing instance. A Problem is built fresh
// per optimization call and never shared between calls.
type Problem struct {
	Locations        []model.Location
	Matrix           geo.Matrix
	Vehicles         int
	Capacity         int
	Demands          []int
	Priorities       []int
	MaxRoutePriority int
}

// Customers returns the number of non-depot locations.
func (p Problem) Customers() int { return len(p.Locations) - 1 }

// BuildProblem assembles a routing instance from a store and its pending
// orders. Urgent and high-priority orders are routed first; when none
// qualify, the first ten orders by arrival are taken instead.
func BuildProblem(store model.StoreInfo, vehicles, capacity int, orders []model.Order) (Problem, error) {
	selected := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Priority <= model.PriorityHigh {
			selected = append(selected, o)
		}
	}
	if len(selected) == 0 {
		if len(orders) > fallbackOrderCount {
			selected = orders[:fallbackOrderCount]
		} else {
			selected = orders
		}
	}
	if len(selected) == 0 {
		return Problem{}, ErrNoOrders
	}

	locs := make([]model.Location, 0, len(selected)+1)
	locs = append(locs, model.Location{Index: DepotIndex, Point: store.Location, Kind: model.LocationDepot})
	demands := make([]int, 1, len(selected)+1)
	prios := make([]int, 1, len(selected)+1)
	for i, o := range selected {
		locs = append(locs, model.Location{
			Index:    i + 1,
			Point:    o.Customer,
			Kind:     model.LocationCustomer,
			OrderID:  o.ID,
			Priority: o.Priority,
		})
		demands = append(demands, 1)
		prios = append(prios, int(o.Priority))
	}

	points := make([]model.GeoPoint, len(locs))
	for i, l := range locs {
		points[i] = l.Point
	}

	return Problem{
		Locations:        locs,
		Matrix:           geo.BuildMatrix(points),
		Vehicles:         vehicles,
		Capacity:         capacity,
		Demands:          demands,
		Priorities:       prios,
		MaxRoutePriority: DefaultMaxRoutePriority,
	}, nil
}
