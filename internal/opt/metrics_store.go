package opt

import (
	"sync"
	"time"
)

// PlanMetrics ties one solver run's metrics to the plan it produced.
type PlanMetrics struct {
	PlanID     string    `json:"planId"`
	StoreID    string    `json:"storeId"`
	RecordedAt time.Time `json:"recordedAt"`
	Metrics    Metrics   `json:"metrics"`
}

// MetricsStore keeps recent solver metrics in memory per store, newest
// first, capped so long-running processes do not grow without bound.
type MetricsStore struct {
	mu      sync.Mutex
	byStore map[string][]PlanMetrics
	cap     int
}

func NewMetricsStore() *MetricsStore {
	return &MetricsStore{byStore: map[string][]PlanMetrics{}, cap: 100}
}

func (s *MetricsStore) Record(storeID, planID string, m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := PlanMetrics{PlanID: planID, StoreID: storeID, RecordedAt: time.Now().UTC(), Metrics: m}
	list := append([]PlanMetrics{entry}, s.byStore[storeID]...)
	if len(list) > s.cap {
		list = list[:s.cap]
	}
	s.byStore[storeID] = list
}

func (s *MetricsStore) ForStore(storeID string) []PlanMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlanMetrics(nil), s.byStore[storeID]...)
}
