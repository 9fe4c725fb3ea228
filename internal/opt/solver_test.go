package opt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetroute/internal/model"
)

// fastOpts keeps test runs deterministic and short: a fixed iteration cap
// well inside the wall-clock budget.
var fastOpts = Options{
	TimeBudget:    5 * time.Second,
	MaxIterations: 200,
	Seed:          42,
}

func buildTestProblem(t *testing.T, vehicles, capacity, customers int, prio model.Priority) Problem {
	t.Helper()
	p, err := BuildProblem(testStore, vehicles, capacity, makeOrders(customers, prio))
	require.NoError(t, err)
	return p
}

func TestSolveSingleVehicle(t *testing.T) {
	p := buildTestProblem(t, 1, 3, 3, model.PriorityUrgent)

	sol, metrics, err := Solve(p, fastOpts)
	require.NoError(t, err)

	require.Len(t, sol.Routes, 1)
	assert.Equal(t, 3, sol.Routes[0].Load)
	assert.Len(t, sol.Routes[0].Stops, 3)
	assert.Positive(t, sol.TotalDistanceM)
	assert.Equal(t, 1, sol.VehiclesUsed)
	assert.Positive(t, metrics.Iterations)
	assert.LessOrEqual(t, metrics.BestCost, metrics.InitialCost)
}

func TestSolveEmptyProblem(t *testing.T) {
	p := Problem{
		Locations:        []model.Location{{Index: 0, Kind: model.LocationDepot, Point: testStore.Location}},
		Matrix:           [][]int{{0}},
		Vehicles:         3,
		Capacity:         20,
		Demands:          []int{0},
		Priorities:       []int{0},
		MaxRoutePriority: DefaultMaxRoutePriority,
	}
	sol, _, err := Solve(p, fastOpts)
	require.NoError(t, err)
	assert.Empty(t, sol.Routes)
	assert.Zero(t, sol.TotalDistanceM)
}

func TestSolveInfeasible(t *testing.T) {
	p := buildTestProblem(t, 1, 3, 5, model.PriorityUrgent)
	_, _, err := Solve(p, fastOpts)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveVisitsEveryCustomerOnce(t *testing.T) {
	p := buildTestProblem(t, 3, 4, 8, model.PriorityUrgent)

	sol, _, err := Solve(p, fastOpts)
	require.NoError(t, err)

	seen := map[int]int{}
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			seen[s.LocationIndex]++
		}
	}
	require.Len(t, seen, 8)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "location %d visited more than once", idx)
		assert.NotEqual(t, DepotIndex, idx)
	}
}

func TestSolveHonorsCapacity(t *testing.T) {
	p := buildTestProblem(t, 4, 2, 7, model.PriorityUrgent)

	sol, _, err := Solve(p, fastOpts)
	require.NoError(t, err)
	for _, r := range sol.Routes {
		assert.LessOrEqual(t, r.Load, 2)
	}
}

func TestSolveHonorsPriorityCeiling(t *testing.T) {
	// Medium priority weighs 3, so at most three stops chain per route.
	p := buildTestProblem(t, 2, 10, 6, model.PriorityMedium)
	// Medium orders alone fall through to the priority fallback path, so the
	// problem still carries six weight-3 customers.
	require.Equal(t, 6, p.Customers())

	sol, _, err := Solve(p, fastOpts)
	require.NoError(t, err)
	for _, r := range sol.Routes {
		weight := 0
		for _, s := range r.Stops {
			weight += int(s.Priority)
		}
		assert.LessOrEqual(t, weight, DefaultMaxRoutePriority)
	}
}

func TestSolveDeterministicWithSeed(t *testing.T) {
	p := buildTestProblem(t, 3, 4, 9, model.PriorityUrgent)

	first, _, err := Solve(p, fastOpts)
	require.NoError(t, err)
	second, _, err := Solve(p, fastOpts)
	require.NoError(t, err)

	require.Len(t, second.Routes, len(first.Routes))
	assert.Equal(t, first.TotalDistanceM, second.TotalDistanceM)
	for i := range first.Routes {
		assert.Equal(t, first.Routes[i].Path.Interior(), second.Routes[i].Path.Interior())
	}
}

func TestSolveRoutesAreClosedLoops(t *testing.T) {
	p := buildTestProblem(t, 2, 5, 6, model.PriorityUrgent)

	sol, _, err := Solve(p, fastOpts)
	require.NoError(t, err)
	for _, r := range sol.Routes {
		path := r.Path.Indices()
		require.GreaterOrEqual(t, len(path), 3)
		assert.Equal(t, DepotIndex, path[0])
		assert.Equal(t, DepotIndex, path[len(path)-1])
		assert.Equal(t, r.Path.Len(), len(r.Stops))
	}
}
