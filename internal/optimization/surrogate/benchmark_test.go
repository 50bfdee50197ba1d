package surrogate

import (
	"math/rand"
	"runtime"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
)

func randomSample(rng *rand.Rand, nSamples, nFeatures int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(nSamples, nFeatures, nil)
	y := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		y.SetVec(i, rng.NormFloat64())
	}
	return X, y
}

func unitScale(n int) []float64 {
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1.0
	}
	return scale
}

// BenchmarkKrigingFitScaling measures how fitting scales with sample size
func BenchmarkKrigingFitScaling(b *testing.B) {
	tests := []struct {
		name      string
		nSamples  int
		nFeatures int
		estimate  bool
	}{
		{"Small", 50, 2, false},
		{"Medium", 200, 5, false},
		{"SmallEstimated", 50, 2, true},
	}

	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			X, y := randomSample(rand.New(rand.NewSource(1)), tt.nSamples, tt.nFeatures)
			kernel := kernels.NewMatern52(unitScale(tt.nFeatures), 1.0, 1e-6)
			opts := []Option{}
			if !tt.estimate {
				opts = append(opts, WithFixedHyperparameters())
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = NewKriging(X, y, kernel, opts...)
			}
		})
	}
}

// BenchmarkKernelComparison compares fitting cost across kernels
func BenchmarkKernelComparison(b *testing.B) {
	tests := []struct {
		name   string
		kernel kernels.Kernel
	}{
		{"SquaredExponential", kernels.NewSquaredExponential(unitScale(5), 1.0, 1e-6)},
		{"Matern52", kernels.NewMatern52(unitScale(5), 1.0, 1e-6)},
	}

	X, y := randomSample(rand.New(rand.NewSource(2)), 200, 5)
	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = NewRegression(X, y, tt.kernel, TrendLinear, WithFixedHyperparameters())
			}
		})
	}
}

// BenchmarkPredictConcurrent measures prediction under concurrent access
func BenchmarkPredictConcurrent(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	X, y := randomSample(rng, 300, 5)
	XTest, _ := randomSample(rng, 100, 5)

	k, err := NewKriging(X, y, kernels.NewMatern52(unitScale(5), 1.0, 1e-6), WithFixedHyperparameters())
	if err != nil {
		b.Fatalf("Failed to fit surrogate: %v", err)
	}

	tests := []struct {
		name        string
		parallelism int
	}{
		{"Sequential", 1},
		{"Concurrent", runtime.NumCPU()},
	}

	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			b.SetParallelism(tt.parallelism)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					_, _, _ = k.Predict(XTest)
				}
			})
		})
	}
}
