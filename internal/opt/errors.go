package opt

import "errors"

var (
	// ErrNoOrders signals an empty or fully filtered order snapshot.
	ErrNoOrders = errors.New("no deliverable orders")
	// ErrInfeasible signals that total demand exceeds aggregate fleet capacity.
	ErrInfeasible = errors.New("total demand exceeds fleet capacity")
	// ErrNoSolution signals that the search budget expired without a feasible
	// assignment covering every customer.
	ErrNoSolution = errors.New("no feasible assignment found within budget")
)
