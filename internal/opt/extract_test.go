package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetroute/internal/model"
)

func TestExtractDeterministic(t *testing.T) {
	p := buildTestProblem(t, 3, 4, 6, model.PriorityUrgent)
	a := assignment{{1, 2}, {3, 4, 5}, {6}}

	first := Extract(p, a)
	second := Extract(p, a)

	require.Equal(t, first.TotalDistanceM, second.TotalDistanceM)
	require.Len(t, second.Routes, len(first.Routes))
	for i := range first.Routes {
		assert.Equal(t, first.Routes[i].Path.Interior(), second.Routes[i].Path.Interior())
		assert.Equal(t, first.Routes[i].DistanceM, second.Routes[i].DistanceM)
	}
}

func TestExtractSkipsEmptyVehicles(t *testing.T) {
	p := buildTestProblem(t, 3, 4, 3, model.PriorityUrgent)
	a := assignment{{}, {1, 2, 3}, {}}

	sol := Extract(p, a)
	require.Len(t, sol.Routes, 1)
	assert.Equal(t, 1, sol.VehiclesUsed)
	assert.Equal(t, 3, sol.Routes[0].Load)
	assert.Equal(t, sol.Routes[0].DistanceM, sol.TotalDistanceM)
}

func TestExtractCarriesOrderIdentity(t *testing.T) {
	p := buildTestProblem(t, 1, 3, 2, model.PriorityUrgent)
	sol := Extract(p, assignment{{2, 1}})

	require.Len(t, sol.Routes[0].Stops, 2)
	assert.Equal(t, p.Locations[2].OrderID, sol.Routes[0].Stops[0].OrderID)
	assert.Equal(t, p.Locations[1].OrderID, sol.Routes[0].Stops[1].OrderID)
	assert.Equal(t, p.Locations[2].Priority, sol.Routes[0].Stops[0].Priority)
}
