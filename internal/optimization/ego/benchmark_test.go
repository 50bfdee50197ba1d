package ego

import (
	"context"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/design"
	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
	"github.com/copyleftdev/egoserver/internal/optimization/surrogate"
	"github.com/copyleftdev/egoserver/internal/optimization/testfunctions"
)

// BenchmarkEGORosenbrock measures a complete run on the 2-D Rosenbrock function
func BenchmarkEGORosenbrock(b *testing.B) {
	fn, _ := testfunctions.Lookup("rosenbrock")
	bounds := fn.Bounds(2)
	problem := &optimization.Problem{
		Objective:    fn.Objective(2),
		Bounds:       bounds,
		Minimization: true,
	}

	X, err := design.LatinHypercube(10, bounds, rand.New(rand.NewSource(42)))
	if err != nil {
		b.Fatalf("Failed to draw initial design: %v", err)
	}
	y := mat.NewVecDense(10, nil)
	for i := 0; i < 10; i++ {
		y.SetVec(i, fn.Func(X.RawRowView(i)))
	}

	cfg := DefaultConfig()
	cfg.MaximumEvaluationNumber = 20
	cfg.Seed = 42

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k, err := surrogate.NewKriging(X, y, kernels.NewSquaredExponential([]float64{1, 1}, 1, 0))
		if err != nil {
			b.Fatalf("Failed to fit surrogate: %v", err)
		}
		e, err := New(problem, k, cfg)
		if err != nil {
			b.Fatalf("Failed to create run: %v", err)
		}
		if _, err := e.Run(context.Background()); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
	}
}
