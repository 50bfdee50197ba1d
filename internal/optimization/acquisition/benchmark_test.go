package acquisition

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
	"github.com/copyleftdev/egoserver/internal/optimization/surrogate"
)

// BenchmarkExpectedImprovement compares point-wise and batched evaluation
func BenchmarkExpectedImprovement(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	nSamples, nFeatures := 100, 5

	X := mat.NewDense(nSamples, nFeatures, nil)
	y := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.SetVec(i, rng.NormFloat64())
	}

	scale := []float64{1, 1, 1, 1, 1}
	model, err := surrogate.NewKriging(X, y, kernels.NewMatern52(scale, 1, 1e-6), surrogate.WithFixedHyperparameters())
	if err != nil {
		b.Fatalf("Failed to fit surrogate: %v", err)
	}

	candidates := mat.NewDense(1000, nFeatures, nil)
	for i := 0; i < 1000; i++ {
		for j := 0; j < nFeatures; j++ {
			candidates.Set(i, j, rng.Float64())
		}
	}
	ei := NewExpectedImprovement(model, 0, true, 1e-8)

	b.Run("Point", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			for r := 0; r < 1000; r++ {
				_, _ = ei.Evaluate(candidates.RawRowView(r))
			}
		}
	})

	b.Run("Sample", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = ei.EvaluateSample(candidates)
		}
	})
}
