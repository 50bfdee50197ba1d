package solver

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// Method selects the local optimization algorithm
type Method int

const (
	// NelderMead is derivative free
	NelderMead Method = iota
	// LBFGS uses finite-difference gradients
	LBFGS
)

// String returns the name of the method
func (m Method) String() string {
	if m == LBFGS {
		return "lbfgs"
	}
	return "nelder_mead"
}

// ParseMethod converts a method name into a Method
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "nelder_mead", "":
		return NelderMead, true
	case "lbfgs":
		return LBFGS, true
	default:
		return 0, false
	}
}

// Local runs a single local optimization with gonum's optimize package.
// Iterates are projected into the bounds before every evaluation.
type Local struct {
	Method         Method
	MaxEvaluations int
	Tolerance      float64
	Logger         *zap.Logger
}

var _ StartingPointSolver = (*Local)(nil)

// NewLocal creates a Local solver with default settings
func NewLocal() *Local {
	return &Local{
		Method:         NelderMead,
		MaxEvaluations: 500,
		Tolerance:      1e-8,
		Logger:         zap.NewNop(),
	}
}

// Solve starts from the center of the bounds
func (l *Local) Solve(ctx context.Context, problem SubProblem) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	start := make([]float64, problem.Dimension)
	if problem.Bounds != nil {
		start = optimization.Center(problem.Bounds)
	}
	return l.SolveFrom(ctx, problem, start)
}

// SolveFrom runs the local optimization from start
func (l *Local) SolveFrom(ctx context.Context, problem SubProblem, start []float64) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := checkStart(problem, start); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	x0 := make([]float64, problem.Dimension)
	optimization.Clamp(x0, start, problem.Bounds)

	projected := make([]float64, problem.Dimension)
	// gonum always minimizes
	minimized := func(x []float64) float64 {
		optimization.Clamp(projected, x, problem.Bounds)
		v := problem.Func(projected)
		if problem.Maximize {
			v = -v
		}
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	p := optimize.Problem{Func: minimized}
	var method optimize.Method
	switch l.Method {
	case LBFGS:
		p.Grad = func(grad, x []float64) {
			fd.Gradient(grad, minimized, x, nil)
		}
		method = &optimize.LBFGS{}
	default:
		method = &optimize.NelderMead{
			Reflection:  1.0,
			Expansion:   2.0,
			Contraction: 0.5,
			Shrink:      0.5,
			SimplexSize: simplexSize(problem.Bounds),
		}
	}

	settings := &optimize.Settings{
		FuncEvaluations: l.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   l.Tolerance,
			Relative:   l.Tolerance,
			Iterations: 50,
		},
	}

	best := &Result{X: x0, F: problem.Func(x0), Evaluations: 1}

	result, err := optimize.Minimize(p, x0, settings, method)
	if result == nil {
		logger.Debug("Local optimization failed", zap.Error(err))
		return best, nil
	}
	if err != nil {
		logger.Debug("Local optimization stopped early",
			zap.Error(err),
			zap.String("status", result.Status.String()))
	}

	x := make([]float64, problem.Dimension)
	optimization.Clamp(x, result.X, problem.Bounds)
	f := problem.Func(x)
	best.Evaluations += result.Stats.FuncEvaluations + 1
	if problem.better(f, best.F) {
		best.X = x
		best.F = f
	}
	return best, nil
}

// simplexSize scales the initial simplex to the smallest finite box side
func simplexSize(bounds [][2]float64) float64 {
	size := math.Inf(1)
	for _, b := range bounds {
		if w := b[1] - b[0]; w > 0 && !math.IsInf(w, 0) {
			size = math.Min(size, 0.2*w)
		}
	}
	if math.IsInf(size, 0) {
		return 0.2
	}
	return size
}
