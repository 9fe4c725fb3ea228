package api

import (
	"fmt"

	"fleetroute/internal/model"
	"fleetroute/internal/plan"
)

const (
	maxVehicles  = 50
	maxCapacity  = 500
	maxBudgetSec = 60
)

func validatePlanRequest(req plan.Request) error {
	if req.StoreID == "" {
		return fmt.Errorf("storeId is required")
	}
	if req.Vehicles < 0 || req.Vehicles > maxVehicles {
		return fmt.Errorf("vehicles must be between 1 and %d", maxVehicles)
	}
	if req.Capacity < 0 || req.Capacity > maxCapacity {
		return fmt.Errorf("capacity must be between 1 and %d", maxCapacity)
	}
	if req.TimeBudgetSec < 0 || req.TimeBudgetSec > maxBudgetSec {
		return fmt.Errorf("timeBudgetSec must be between 0 and %d", maxBudgetSec)
	}
	if req.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must not be negative")
	}
	return nil
}

func validateOrder(o model.Order) error {
	if o.StoreID == "" {
		return fmt.Errorf("storeId is required")
	}
	if o.Customer.Lat < -90 || o.Customer.Lat > 90 {
		return fmt.Errorf("customer lat out of range")
	}
	if o.Customer.Lon < -180 || o.Customer.Lon > 180 {
		return fmt.Errorf("customer lon out of range")
	}
	if o.Priority != 0 && (o.Priority < model.PriorityUrgent || o.Priority > model.PriorityLow) {
		return fmt.Errorf("priority must be between %d and %d", model.PriorityUrgent, model.PriorityLow)
	}
	return nil
}

func validateSubscription(sub model.Subscription) error {
	if sub.URL == "" {
		return fmt.Errorf("url is required")
	}
	if len(sub.Events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	return nil
}
