package opt

import "fleetroute/internal/model"

// Extract converts a raw vehicle assignment into the external Solution
// shape. Empty vehicles are dropped; stop order and distances are
// deterministic given the same assignment.
func Extract(p Problem, a assignment) model.Solution {
	sol := model.Solution{Routes: []model.Route{}}
	for v, interior := range a {
		if len(interior) == 0 {
			continue
		}
		stops := make([]model.Stop, 0, len(interior))
		dist := 0
		prev := DepotIndex
		for _, idx := range interior {
			loc := p.Locations[idx]
			stops = append(stops, model.Stop{
				LocationIndex: idx,
				Point:         loc.Point,
				OrderID:       loc.OrderID,
				Priority:      loc.Priority,
			})
			dist += p.Matrix[prev][idx]
			prev = idx
		}
		dist += p.Matrix[prev][DepotIndex]
		sol.Routes = append(sol.Routes, model.Route{
			VehicleID: v,
			Path:      model.NewLoop(interior...),
			Stops:     stops,
			DistanceM: dist,
			Load:      len(interior),
		})
		sol.TotalDistanceM += dist
	}
	sol.VehiclesUsed = len(sol.Routes)
	return sol
}
