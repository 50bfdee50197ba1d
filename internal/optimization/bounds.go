package optimization

import "math"

// BoundsFinite reports whether bounds is non-empty and every limit is finite.
func BoundsFinite(bounds [][2]float64) bool {
	if len(bounds) == 0 {
		return false
	}
	for _, b := range bounds {
		if math.IsInf(b[0], 0) || math.IsInf(b[1], 0) {
			return false
		}
	}
	return true
}

// Clamp projects x into bounds, writing the result into dst.
// If dst is nil a new slice is allocated. A nil bounds leaves x unchanged.
func Clamp(dst, x []float64, bounds [][2]float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	copy(dst, x)
	for i := range bounds {
		if i >= len(dst) {
			break
		}
		dst[i] = math.Max(bounds[i][0], math.Min(dst[i], bounds[i][1]))
	}
	return dst
}

// Contains reports whether x lies within bounds.
func Contains(x []float64, bounds [][2]float64) bool {
	if len(bounds) == 0 {
		return true
	}
	if len(x) != len(bounds) {
		return false
	}
	for i, v := range x {
		if v < bounds[i][0] || v > bounds[i][1] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of finite bounds; infinite sides fall back to zero.
func Center(bounds [][2]float64) []float64 {
	c := make([]float64, len(bounds))
	for i, b := range bounds {
		lo, hi := b[0], b[1]
		switch {
		case !math.IsInf(lo, 0) && !math.IsInf(hi, 0):
			c[i] = 0.5 * (lo + hi)
		case !math.IsInf(lo, 0):
			c[i] = math.Max(lo, 0)
		case !math.IsInf(hi, 0):
			c[i] = math.Min(hi, 0)
		}
	}
	return c
}
