package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetroute/internal/model"
	"fleetroute/internal/predict"
)

// seedStores is the built-in depot registry used when no database is
// configured.
var seedStores = []model.StoreInfo{
	{ID: "Store_A", Location: model.GeoPoint{Lat: 40.7128, Lon: -74.0060}, Capacity: 500},
	{ID: "Store_B", Location: model.GeoPoint{Lat: 40.7589, Lon: -73.9851}, Capacity: 300},
	{ID: "Store_C", Location: model.GeoPoint{Lat: 40.6782, Lon: -73.9442}, Capacity: 400},
	{ID: "Store_D", Location: model.GeoPoint{Lat: 40.7831, Lon: -73.9712}, Capacity: 600},
	{ID: "Store_E", Location: model.GeoPoint{Lat: 40.6892, Lon: -74.0445}, Capacity: 350},
}

// Memory is an in-process Store for tests and single-node runs.
type Memory struct {
	mu            sync.RWMutex
	stores        map[string]model.StoreInfo
	orders        map[string]model.Order
	sales         map[string][]predict.SalesRecord
	plans         map[string]model.Plan
	planOrder     []string
	subscriptions map[string]model.Subscription
	deliveries    map[string]WebhookDelivery
}

func NewMemory() *Memory {
	m := &Memory{
		stores:        map[string]model.StoreInfo{},
		orders:        map[string]model.Order{},
		sales:         map[string][]predict.SalesRecord{},
		plans:         map[string]model.Plan{},
		subscriptions: map[string]model.Subscription{},
		deliveries:    map[string]WebhookDelivery{},
	}
	for _, s := range seedStores {
		m.stores[s.ID] = s
	}
	return m
}

func (m *Memory) GetStore(_ context.Context, id string) (model.StoreInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return model.StoreInfo{}, ErrUnknownStore
	}
	return s, nil
}

func (m *Memory) ListStores(_ context.Context) ([]model.StoreInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.StoreInfo, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateOrders(_ context.Context, orders []model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		if _, ok := m.stores[o.StoreID]; !ok {
			return ErrUnknownStore
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Status == "" {
			o.Status = "pending"
		}
		m.orders[o.ID] = o
	}
	return nil
}

func (m *Memory) PendingOrders(_ context.Context, storeID string) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.stores[storeID]; !ok {
		return nil, ErrUnknownStore
	}
	var out []model.Order
	for _, o := range m.orders {
		if o.StoreID == storeID && o.Status == "pending" {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out, nil
}

func (m *Memory) MarkOrdersPlanned(_ context.Context, orderIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range orderIDs {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		o.Status = "planned"
		m.orders[id] = o
	}
	return nil
}

func (m *Memory) SalesHistory(_ context.Context, storeID string, days int) ([]predict.SalesRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.stores[storeID]; !ok {
		return nil, ErrUnknownStore
	}
	hist := m.sales[storeID]
	if days > 0 && len(hist) > days {
		hist = hist[len(hist)-days:]
	}
	return append([]predict.SalesRecord(nil), hist...), nil
}

func (m *Memory) AppendSales(_ context.Context, rec predict.SalesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[rec.StoreID]; !ok {
		return ErrUnknownStore
	}
	m.sales[rec.StoreID] = append(m.sales[rec.StoreID], rec)
	return nil
}

func (m *Memory) SavePlan(_ context.Context, p model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		m.planOrder = append(m.planOrder, p.ID)
	}
	m.plans[p.ID] = p
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(_ context.Context, storeID string, limit int) ([]model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Plan
	for i := len(m.planOrder) - 1; i >= 0; i-- {
		p := m.plans[m.planOrder[i]]
		if storeID != "" && p.StoreID != storeID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) CreateSubscription(_ context.Context, sub model.Subscription) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	m.subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *Memory) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SubscriptionsForEvent(_ context.Context, event string) ([]model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Subscription
	for _, s := range m.subscriptions {
		for _, e := range s.Events {
			if e == event || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteSubscription(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscriptions[id]; !ok {
		return ErrNotFound
	}
	delete(m.subscriptions, id)
	return nil
}

func (m *Memory) EnqueueWebhook(_ context.Context, d WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = "pending"
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	m.deliveries[d.ID] = d
	return nil
}

func (m *Memory) DueWebhookDeliveries(_ context.Context, now time.Time, limit int) ([]WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WebhookDelivery
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.NextAttempt.After(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttempt.Before(out[j].NextAttempt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivered(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = "delivered"
	m.deliveries[id] = d
	return nil
}

func (m *Memory) FailWebhookDelivery(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts = attempts
	d.NextAttempt = next
	d.LastError = lastErr
	if next.IsZero() {
		d.Status = "failed"
	}
	m.deliveries[id] = d
	return nil
}

func (m *Memory) ListWebhookDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WebhookDelivery, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
