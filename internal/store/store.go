// Package store persists stores, orders, plans, and webhook state. Memory
// backs tests and local runs; Postgres backs deployments.
package store

import (
	"context"
	"errors"
	"time"

	"fleetroute/internal/model"
	"fleetroute/internal/predict"
)

var (
	// ErrNotFound signals a lookup miss for any entity.
	ErrNotFound = errors.New("not found")
	// ErrUnknownStore signals a reference to a store absent from the registry.
	ErrUnknownStore = errors.New("unknown store")
)

// WebhookDelivery is one queued outbound webhook attempt.
type WebhookDelivery struct {
	ID          string         `json:"id"`
	Event       string         `json:"event"`
	URL         string         `json:"url"`
	Secret      string         `json:"-"`
	Payload     map[string]any `json:"payload"`
	Attempts    int            `json:"attempts"`
	NextAttempt time.Time      `json:"nextAttempt"`
	Status      string         `json:"status"` // pending, delivered, failed
	LastError   string         `json:"lastError,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Store is the persistence boundary for the planning service.
type Store interface {
	GetStore(ctx context.Context, id string) (model.StoreInfo, error)
	ListStores(ctx context.Context) ([]model.StoreInfo, error)

	CreateOrders(ctx context.Context, orders []model.Order) error
	PendingOrders(ctx context.Context, storeID string) ([]model.Order, error)
	MarkOrdersPlanned(ctx context.Context, orderIDs []string) error

	SalesHistory(ctx context.Context, storeID string, days int) ([]predict.SalesRecord, error)
	AppendSales(ctx context.Context, rec predict.SalesRecord) error

	SavePlan(ctx context.Context, p model.Plan) error
	GetPlan(ctx context.Context, id string) (model.Plan, error)
	ListPlans(ctx context.Context, storeID string, limit int) ([]model.Plan, error)

	CreateSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	SubscriptionsForEvent(ctx context.Context, event string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	EnqueueWebhook(ctx context.Context, d WebhookDelivery) error
	DueWebhookDeliveries(ctx context.Context, now time.Time, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivered(ctx context.Context, id string) error
	FailWebhookDelivery(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	ListWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
}
