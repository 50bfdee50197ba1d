package solver

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

func bowl(center ...float64) func([]float64) float64 {
	return func(x []float64) float64 {
		sum := 0.0
		for i, v := range x {
			d := v - center[i]
			sum += d * d
		}
		return sum
	}
}

func TestLocalSolve(t *testing.T) {
	tests := []struct {
		name     string
		method   Method
		problem  SubProblem
		expected []float64
	}{
		{
			name:   "nelder mead minimization",
			method: NelderMead,
			problem: SubProblem{
				Func:      bowl(1, -2),
				Dimension: 2,
				Bounds:    [][2]float64{{-5, 5}, {-5, 5}},
			},
			expected: []float64{1, -2},
		},
		{
			name:   "lbfgs minimization",
			method: LBFGS,
			problem: SubProblem{
				Func:      bowl(0.5),
				Dimension: 1,
				Bounds:    [][2]float64{{-3, 3}},
			},
			expected: []float64{0.5},
		},
		{
			name:   "maximization",
			method: NelderMead,
			problem: SubProblem{
				Func:      func(x []float64) float64 { return -bowl(2)(x) },
				Dimension: 1,
				Bounds:    [][2]float64{{-4, 4}},
				Maximize:  true,
			},
			expected: []float64{2},
		},
		{
			name:   "optimum outside bounds is projected",
			method: NelderMead,
			problem: SubProblem{
				Func:      bowl(10),
				Dimension: 1,
				Bounds:    [][2]float64{{-1, 1}},
			},
			expected: []float64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := NewLocal()
			local.Method = tt.method
			result, err := local.Solve(context.Background(), tt.problem)
			require.NoError(t, err)
			require.Len(t, result.X, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], result.X[i], 1e-3)
			}
			assert.True(t, optimization.Contains(result.X, tt.problem.Bounds))
			assert.Greater(t, result.Evaluations, 0)
		})
	}
}

func TestLocalErrors(t *testing.T) {
	local := NewLocal()

	_, err := local.Solve(context.Background(), SubProblem{Dimension: 1})
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindConfiguration))

	_, err = local.SolveFrom(context.Background(), SubProblem{Func: bowl(0), Dimension: 1}, []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting point has dimension 2, expected 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = local.Solve(ctx, SubProblem{Func: bowl(0), Dimension: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalNeverWorseThanStart(t *testing.T) {
	// A plateau with NaN elsewhere keeps the starting point
	f := func(x []float64) float64 {
		if x[0] == 0.25 {
			return 1
		}
		return math.NaN()
	}
	result, err := NewLocal().SolveFrom(context.Background(), SubProblem{
		Func:      f,
		Dimension: 1,
		Bounds:    [][2]float64{{0, 1}},
		Maximize:  true,
	}, []float64{0.25})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25}, result.X)
	assert.Equal(t, 1.0, result.F)
}

func TestMultiStart(t *testing.T) {
	// Two basins, the deeper one at x = 3
	f := func(x []float64) float64 {
		return math.Min((x[0]+3)*(x[0]+3)+1, (x[0]-3)*(x[0]-3))
	}
	problem := SubProblem{Func: f, Dimension: 1, Bounds: [][2]float64{{-6, 6}}}

	var calls atomic.Int64
	counted := problem
	counted.Func = func(x []float64) float64 {
		calls.Add(1)
		return f(x)
	}

	ms := NewMultiStart(nil, [][]float64{{-4}, {4}})
	result, err := ms.Solve(context.Background(), counted)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, result.X[0], 1e-3)
	assert.LessOrEqual(t, result.Evaluations, int(calls.Load()))

	t.Run("starting point hint", func(t *testing.T) {
		single := NewMultiStart(nil, [][]float64{{-4}})
		result, err := single.SolveFrom(context.Background(), problem, []float64{2.5})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, result.X[0], 1e-3)
	})

	t.Run("ties go to the first start", func(t *testing.T) {
		flat := SubProblem{
			Func:      func(x []float64) float64 { return 0 },
			Dimension: 1,
			Bounds:    [][2]float64{{0, 1}},
			Maximize:  true,
		}
		ms := NewMultiStart(nil, [][]float64{{0.1}, {0.9}})
		result, err := ms.Solve(context.Background(), flat)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.1}, result.X)
	})

	t.Run("no starts falls back to a single local run", func(t *testing.T) {
		result, err := NewMultiStart(nil, nil).Solve(context.Background(), problem)
		require.NoError(t, err)
		assert.Len(t, result.X, 1)
	})
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod("lbfgs")
	assert.True(t, ok)
	assert.Equal(t, LBFGS, m)
	assert.Equal(t, "lbfgs", m.String())

	m, ok = ParseMethod("")
	assert.True(t, ok)
	assert.Equal(t, NelderMead, m)

	_, ok = ParseMethod("newton")
	assert.False(t, ok)
}
