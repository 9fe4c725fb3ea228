// Package geo computes great-circle distances between plan locations.
package geo

import (
	"math"
	"sync"

	"fleetroute/internal/model"
)

const earthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b model.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// Matrix is a square distance matrix in integer meters. It is symmetric with
// a zero diagonal.
type Matrix [][]int

// BuildMatrix computes the pairwise distance matrix for the given points.
// Rows are filled concurrently; each unordered pair is computed once and
// mirrored, so symmetry holds exactly.
func BuildMatrix(points []model.GeoPoint) Matrix {
	n := len(points)
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := i + 1; j < n; j++ {
				d := int(HaversineMeters(points[i], points[j]))
				m[i][j] = d
				m[j][i] = d
			}
		}(i)
	}
	wg.Wait()
	return m
}

// Arc returns the matrix entry for the directed arc a->b.
func (m Matrix) Arc(a, b int) int { return m[a][b] }

// Size returns the number of locations covered by the matrix.
func (m Matrix) Size() int { return len(m) }
