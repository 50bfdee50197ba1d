package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testObjectiveFunc is a simple quadratic objective function for testing
func testObjectiveFunc(x []float64) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

// vectorFunction is a Function with a configurable output dimension
type vectorFunction struct {
	in, out int
}

func (v vectorFunction) InputDimension() int  { return v.in }
func (v vectorFunction) OutputDimension() int { return v.out }
func (v vectorFunction) Evaluate(x []float64) ([]float64, error) {
	return make([]float64, v.out), nil
}

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}

func TestCheckProblem(t *testing.T) {
	objective := NewScalarFunction(2, testObjectiveFunc)

	tests := []struct {
		name    string
		problem *Problem
		wantErr bool
	}{
		{
			name:    "valid bounded problem",
			problem: &Problem{Objective: objective, Bounds: [][2]float64{{-1, 1}, {0, 2}}, Minimization: true},
		},
		{
			name:    "valid unbounded problem",
			problem: &Problem{Objective: objective},
		},
		{
			name:    "nil problem",
			problem: nil,
			wantErr: true,
		},
		{
			name:    "multiple outputs",
			problem: &Problem{Objective: vectorFunction{in: 2, out: 2}},
			wantErr: true,
		},
		{
			name:    "inequality constraint",
			problem: &Problem{Objective: objective, InequalityConstraint: vectorFunction{in: 2, out: 1}},
			wantErr: true,
		},
		{
			name:    "equality constraint",
			problem: &Problem{Objective: objective, EqualityConstraint: vectorFunction{in: 2, out: 1}},
			wantErr: true,
		},
		{
			name:    "integer variable",
			problem: &Problem{Objective: objective, Variables: []VariableType{Continuous, Integer}},
			wantErr: true,
		},
		{
			name:    "bounds dimension mismatch",
			problem: &Problem{Objective: objective, Bounds: [][2]float64{{0, 1}}},
			wantErr: true,
		},
		{
			name:    "inverted bounds",
			problem: &Problem{Objective: objective, Bounds: [][2]float64{{0, 1}, {3, 2}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckProblem(tt.problem)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfiguration), "expected a configuration error, got %v", err)
		})
	}
}

func TestBoundsHelpers(t *testing.T) {
	bounds := [][2]float64{{-1, 1}, {0, 10}}

	assert.True(t, BoundsFinite(bounds))
	assert.False(t, BoundsFinite(nil))
	assert.False(t, BoundsFinite([][2]float64{{math.Inf(-1), 1}}))

	assertFloat64SlicesEqual(t, Clamp(nil, []float64{-5, 12}, bounds), []float64{-1, 10}, 0)
	assertFloat64SlicesEqual(t, Clamp(nil, []float64{0.5, 3}, bounds), []float64{0.5, 3}, 0)

	assert.True(t, Contains([]float64{0, 5}, bounds))
	assert.False(t, Contains([]float64{2, 5}, bounds))
	assert.True(t, Contains([]float64{100}, nil))

	assertFloat64SlicesEqual(t, Center(bounds), []float64{0, 5}, 1e-12)
	assertFloat64SlicesEqual(t, Center([][2]float64{{math.Inf(-1), math.Inf(1)}, {2, math.Inf(1)}}), []float64{0, 2}, 0)
}

func TestSolutionBetter(t *testing.T) {
	var none *Solution
	assert.True(t, none.Better(1, true))

	s := &Solution{Value: 1}
	assert.True(t, s.Better(0.5, true))
	assert.False(t, s.Better(1, true), "ties must not replace the incumbent")
	assert.True(t, s.Better(2, false))
	assert.False(t, s.Better(1, false))
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("singular matrix")
	err := WrapError(base, "refit failed").WithComponent("ego").WithOperation("refit").WithKind(KindRefit)

	assert.Equal(t, "ego: refit: refit failed: singular matrix", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsKind(err, KindRefit))
	assert.False(t, IsKind(err, KindInfeasible))

	outer := WrapError(err, "run aborted")
	assert.True(t, IsKind(outer, KindRefit), "kind must be found through wrapping")

	e, ok := IsOptimizationError(outer)
	require.True(t, ok)
	assert.Equal(t, "run aborted", e.Message)

	assert.Nil(t, WrapError(nil, "nothing"))
	assert.Equal(t, "refit", KindRefit.String())
}
