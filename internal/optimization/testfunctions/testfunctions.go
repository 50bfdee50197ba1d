// Package testfunctions holds analytic benchmark objectives with known minima.
package testfunctions

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// TestFunction is a named benchmark objective
type TestFunction struct {
	Name string
	// Dimension is the required input dimension, 0 when any dimension works
	Dimension int
	// Minimum is the global minimum value
	Minimum float64
	// Func evaluates the objective
	Func func(x []float64) float64

	lower, upper float64
}

// Bounds returns the default search box in dim dimensions
func (f TestFunction) Bounds(dim int) [][2]float64 {
	if f.Dimension > 0 {
		dim = f.Dimension
	}
	bounds := make([][2]float64, dim)
	for i := range bounds {
		bounds[i] = [2]float64{f.lower, f.upper}
	}
	if f.Name == "branin" {
		bounds[0] = [2]float64{-5, 10}
		bounds[1] = [2]float64{0, 15}
	}
	return bounds
}

// Objective adapts the function to an optimization.Function of dimension dim
func (f TestFunction) Objective(dim int) optimization.Function {
	if f.Dimension > 0 {
		dim = f.Dimension
	}
	fn := f.Func
	return optimization.NewScalarFunction(dim, func(x []float64) (float64, error) {
		return fn(x), nil
	})
}

// Quadratic is the sum of (x_i - 3)²
func Quadratic(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += (v - 3) * (v - 3)
	}
	return sum
}

// Sphere is the sum of x_i²
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Branin is the two-dimensional Branin-Hoo function
func Branin(x []float64) float64 {
	const (
		a = 1.0
		b = 5.1 / (4 * math.Pi * math.Pi)
		c = 5 / math.Pi
		r = 6.0
		s = 10.0
		t = 1 / (8 * math.Pi)
	)
	u := x[1] - b*x[0]*x[0] + c*x[0] - r
	return a*u*u + s*(1-t)*math.Cos(x[0]) + s
}

// Rosenbrock is the generalized Rosenbrock valley
func Rosenbrock(x []float64) float64 {
	sum := 0.0
	for i := 0; i+1 < len(x); i++ {
		u := x[i+1] - x[i]*x[i]
		v := 1 - x[i]
		sum += 100*u*u + v*v
	}
	return sum
}

var registry = map[string]TestFunction{
	"quadratic":  {Name: "quadratic", Func: Quadratic, Minimum: 0, lower: -10, upper: 10},
	"sphere":     {Name: "sphere", Func: Sphere, Minimum: 0, lower: -5, upper: 5},
	"branin":     {Name: "branin", Dimension: 2, Func: Branin, Minimum: 0.397887357729739},
	"rosenbrock": {Name: "rosenbrock", Func: Rosenbrock, Minimum: 0, lower: -2, upper: 2},
}

// Lookup returns the test function registered under name
func Lookup(name string) (TestFunction, bool) {
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered function names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Noisy adds independent Gaussian noise with standard deviation sd to f.
// The returned function is safe for concurrent use.
func Noisy(f func([]float64) float64, sd float64, rng *rand.Rand) func([]float64) float64 {
	var mu sync.Mutex
	return func(x []float64) float64 {
		mu.Lock()
		e := rng.NormFloat64()
		mu.Unlock()
		return f(x) + sd*e
	}
}
