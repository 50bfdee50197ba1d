package ego

import (
	"math"
)

// distanceTracker keeps, for each input dimension, the smallest distance
// between a newly added point and the points before it.
type distanceTracker struct {
	min []float64
}

func newDistanceTracker(dim int) *distanceTracker {
	t := &distanceTracker{min: make([]float64, dim)}
	for i := range t.min {
		t.min[i] = math.Inf(1)
	}
	return t
}

// Update lowers the minima with the distances from x to every prior point
func (t *distanceTracker) Update(x []float64, prior [][]float64) {
	for _, p := range prior {
		for d := range t.min {
			if dist := math.Abs(x[d] - p[d]); dist < t.min[d] {
				t.min[d] = dist
			}
		}
	}
}

// Minimum returns a copy of the per-dimension minima
func (t *distanceTracker) Minimum() []float64 {
	return append([]float64(nil), t.min...)
}

// Exceeded returns the first dimension whose correlation length is finer than
// the sampling resolution, scale[d] < min[d] / factor. Dimensions without a
// finite minimum are skipped.
func (t *distanceTracker) Exceeded(scale []float64, factor float64) (int, bool) {
	for d, m := range t.min {
		if d >= len(scale) || math.IsInf(m, 1) {
			continue
		}
		if scale[d] < m/factor {
			return d, true
		}
	}
	return -1, false
}
