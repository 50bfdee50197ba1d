// Package design generates space-filling experiments inside a box.
package design

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// Generator draws n points inside bounds, one per row
type Generator func(n int, bounds [][2]float64, rng *rand.Rand) (*mat.Dense, error)

// Names of the available experiments
const (
	UniformName        = "uniform"
	LatinHypercubeName = "lhs"
)

// Lookup returns the generator with the given name
func Lookup(name string) (Generator, bool) {
	switch name {
	case UniformName, "":
		return Uniform, true
	case LatinHypercubeName:
		return LatinHypercube, true
	default:
		return nil, false
	}
}

func checkBounds(n int, bounds [][2]float64) error {
	if n < 0 {
		return optimization.NewErrorf("experiment size must be non-negative, got %d", n).
			WithComponent("design").
			WithKind(optimization.KindConfiguration)
	}
	if !optimization.BoundsFinite(bounds) {
		return optimization.NewError("experiment requires finite bounds on every dimension").
			WithComponent("design").
			WithKind(optimization.KindConfiguration)
	}
	if err := optimization.ValidateBounds(bounds, len(bounds)); err != nil {
		return optimization.WrapError(err, "invalid bounds").
			WithComponent("design").
			WithKind(optimization.KindConfiguration)
	}
	return nil
}

// Uniform draws n independent uniformly distributed points
func Uniform(n int, bounds [][2]float64, rng *rand.Rand) (*mat.Dense, error) {
	if err := checkBounds(n, bounds); err != nil {
		return nil, err
	}
	dim := len(bounds)
	if n == 0 {
		return &mat.Dense{}, nil
	}
	X := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j, b := range bounds {
			X.Set(i, j, b[0]+rng.Float64()*(b[1]-b[0]))
		}
	}
	return X, nil
}

// LatinHypercube draws n points such that each dimension has exactly one point
// in each of n equal-width strata.
func LatinHypercube(n int, bounds [][2]float64, rng *rand.Rand) (*mat.Dense, error) {
	if err := checkBounds(n, bounds); err != nil {
		return nil, err
	}
	dim := len(bounds)
	if n == 0 {
		return &mat.Dense{}, nil
	}
	X := mat.NewDense(n, dim, nil)

	samples1D := make([]float64, n)
	for j, b := range bounds {
		// Generate stratified random samples
		for i := 0; i < n; i++ {
			samples1D[i] = (float64(i) + rng.Float64()) / float64(n)
		}

		rng.Shuffle(n, func(k, l int) {
			samples1D[k], samples1D[l] = samples1D[l], samples1D[k]
		})

		for i := 0; i < n; i++ {
			X.Set(i, j, b[0]+samples1D[i]*(b[1]-b[0]))
		}
	}
	return X, nil
}
