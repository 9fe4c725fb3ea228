// Package predict estimates next-day order demand per store from sales
// history.
package predict

import (
	"errors"
	"time"
)

// ErrModelNotTrained signals a Predict call before any Fit.
var ErrModelNotTrained = errors.New("demand model has not been trained")

// SalesRecord is one historical day of fulfilled orders for a store.
// Product is optional; empty means store-wide volume.
type SalesRecord struct {
	StoreID string    `json:"storeId"`
	Product string    `json:"product,omitempty"`
	Day     time.Time `json:"day"`
	Orders  int       `json:"orders"`
}

// FilterProduct keeps only the records for one product. An empty product
// keeps everything.
func FilterProduct(history []SalesRecord, product string) []SalesRecord {
	if product == "" {
		return history
	}
	out := make([]SalesRecord, 0, len(history))
	for _, r := range history {
		if r.Product == product {
			out = append(out, r)
		}
	}
	return out
}

// Predictor estimates demand for a target day from prior history.
type Predictor interface {
	Fit(history []SalesRecord) error
	Predict(day time.Time) (int, error)
}

// MovingAverage predicts with a trailing window mean plus a weekend uplift
// learned from the history itself.
type MovingAverage struct {
	window  int
	trained bool

	weekdayMean float64
	weekendMean float64
}

func NewMovingAverage(window int) *MovingAverage {
	if window <= 0 {
		window = 7
	}
	return &MovingAverage{window: window}
}

func (m *MovingAverage) Fit(history []SalesRecord) error {
	if len(history) == 0 {
		return errors.New("empty sales history")
	}
	if len(history) > m.window {
		history = history[len(history)-m.window:]
	}
	var wdSum, wdN, weSum, weN float64
	for _, r := range history {
		switch r.Day.Weekday() {
		case time.Saturday, time.Sunday:
			weSum += float64(r.Orders)
			weN++
		default:
			wdSum += float64(r.Orders)
			wdN++
		}
	}
	if wdN > 0 {
		m.weekdayMean = wdSum / wdN
	}
	if weN > 0 {
		m.weekendMean = weSum / weN
	} else {
		// No weekend samples in window; assume a modest uplift.
		m.weekendMean = m.weekdayMean * 1.2
	}
	if wdN == 0 {
		m.weekdayMean = m.weekendMean
	}
	m.trained = true
	return nil
}

func (m *MovingAverage) Predict(day time.Time) (int, error) {
	if !m.trained {
		return 0, ErrModelNotTrained
	}
	mean := m.weekdayMean
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		mean = m.weekendMean
	}
	n := int(mean + 0.5)
	if n < 0 {
		n = 0
	}
	return n, nil
}
