// Package orders supplies pending delivery orders, either from the store
// or synthesized for demos and load tests.
package orders

import (
	"fmt"
	"math/rand"
	"time"

	"fleetroute/internal/model"
)

// productPriorities maps catalog items to delivery urgency. Order urgency is
// the most urgent item it contains.
var productPriorities = map[string]model.Priority{
	"Chicken":  model.PriorityUrgent,
	"Milk":     model.PriorityHigh,
	"Eggs":     model.PriorityHigh,
	"Yogurt":   model.PriorityHigh,
	"Cheese":   model.PriorityHigh,
	"Lettuce":  model.PriorityMedium,
	"Tomatoes": model.PriorityMedium,
	"Bananas":  model.PriorityMedium,
	"Apples":   model.PriorityMedium,
	"Carrots":  model.PriorityMedium,
	"Bread":    model.PriorityLow,
	"Potatoes": model.PriorityLow,
}

var catalog = []string{
	"Chicken", "Milk", "Eggs", "Yogurt", "Cheese",
	"Lettuce", "Tomatoes", "Bananas", "Apples", "Carrots",
	"Bread", "Potatoes",
}

var windows = []string{"ASAP", "2-hour", "4-hour"}

// ItemPriority returns the delivery urgency of a single catalog item.
func ItemPriority(item string) model.Priority {
	if p, ok := productPriorities[item]; ok {
		return p
	}
	return model.PriorityLow
}

// OrderPriority is the most urgent priority among the order's items.
func OrderPriority(items []string) model.Priority {
	best := model.PriorityLow
	for _, it := range items {
		if p := ItemPriority(it); p < best {
			best = p
		}
	}
	return best
}

// Synthetic generates plausible pending orders around a store. The
// randomness source is injectable so generated sets are reproducible.
type Synthetic struct {
	rng *rand.Rand
}

func NewSynthetic(rng *rand.Rand) *Synthetic {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthetic{rng: rng}
}

// Generate produces n orders with customers scattered within roughly 0.1
// degrees of the store, random item baskets, and ages up to six hours.
func (s *Synthetic) Generate(store model.StoreInfo, n int, now time.Time) []model.Order {
	out := make([]model.Order, 0, n)
	for i := 0; i < n; i++ {
		nItems := s.rng.Intn(5) + 1
		items := make([]string, 0, nItems)
		for j := 0; j < nItems; j++ {
			items = append(items, catalog[s.rng.Intn(len(catalog))])
		}
		out = append(out, model.Order{
			ID:      fmt.Sprintf("%s-ORD-%04d", store.ID, i+1),
			StoreID: store.ID,
			Customer: model.GeoPoint{
				Lat: store.Location.Lat + (s.rng.Float64()-0.5)*0.2,
				Lon: store.Location.Lon + (s.rng.Float64()-0.5)*0.2,
			},
			Items:       items,
			Priority:    OrderPriority(items),
			PlacedAt:    now.Add(-time.Duration(s.rng.Intn(360)) * time.Minute),
			PrepTimeMin: s.rng.Intn(26) + 5,
			Window:      windows[s.rng.Intn(len(windows))],
			Status:      "pending",
		})
	}
	return out
}
