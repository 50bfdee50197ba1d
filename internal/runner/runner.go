// Package runner turns a run spec into a configured EGO run on a test function.
package runner

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/config"
	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/design"
	"github.com/copyleftdev/egoserver/internal/optimization/ego"
	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
	"github.com/copyleftdev/egoserver/internal/optimization/solver"
	"github.com/copyleftdev/egoserver/internal/optimization/surrogate"
	"github.com/copyleftdev/egoserver/internal/optimization/testfunctions"
)

// Build validates spec, evaluates the initial design, fits the initial
// surrogate and returns the configured run.
func Build(spec *config.RunSpec, logger *zap.Logger) (*ego.EGO, error) {
	const op = "Build"

	if logger == nil {
		logger = zap.NewNop()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	fn, _ := testfunctions.Lookup(spec.Function)
	bounds := spec.BoxBounds()
	dim := len(bounds)

	seed := spec.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	f := fn.Func
	if spec.NoiseSD > 0 {
		f = testfunctions.Noisy(f, spec.NoiseSD, rand.New(rand.NewSource(seed+1)))
	}
	problem := &optimization.Problem{
		Objective: optimization.NewScalarFunction(dim, func(x []float64) (float64, error) {
			return f(x), nil
		}),
		Bounds:       bounds,
		Minimization: spec.Minimize,
	}

	generate, ok := design.Lookup(spec.EGO.Experiment)
	if !ok {
		return nil, optimization.NewErrorf("unknown experiment %q", spec.EGO.Experiment).
			WithOperation(op).
			WithComponent("runner").
			WithKind(optimization.KindConfiguration)
	}
	X, err := generate(spec.InitialPoints, bounds, rng)
	if err != nil {
		return nil, err
	}
	y := mat.NewVecDense(spec.InitialPoints, nil)
	for i := 0; i < spec.InitialPoints; i++ {
		out, err := problem.Objective.Evaluate(X.RawRowView(i))
		if err != nil {
			return nil, optimization.WrapError(err, "initial design evaluation failed").
				WithOperation(op).
				WithComponent("runner").
				WithKind(optimization.KindEvaluation)
		}
		y.SetVec(i, out[0])
	}

	scale := make([]float64, dim)
	for i, b := range bounds {
		scale[i] = b[1] - b[0]
		if !(scale[i] > 0) {
			scale[i] = 1
		}
	}
	kernel, err := kernels.New(spec.Kernel, scale, 1, spec.Nugget)
	if err != nil {
		return nil, optimization.WrapError(err, "invalid kernel").
			WithOperation(op).
			WithComponent("runner").
			WithKind(optimization.KindConfiguration)
	}

	var initial surrogate.Surrogate
	opts := []surrogate.Option{surrogate.WithLogger(logger.Named(spec.Surrogate))}
	switch spec.Surrogate {
	case config.SurrogateRegression:
		trend, _ := surrogate.ParseTrend(spec.Trend)
		initial, err = surrogate.NewRegression(X, y, kernel, trend, opts...)
	default:
		initial, err = surrogate.NewKriging(X, y, kernel, opts...)
	}
	if err != nil {
		return nil, err
	}

	run, err := ego.New(problem, initial, spec.EGO.Algorithm(seed))
	if err != nil {
		return nil, err
	}

	method, _ := solver.ParseMethod(spec.Solver)
	local := solver.NewLocal()
	local.Method = method
	run.SetLocalSolver(local)
	run.SetLogger(logger)

	logger.Debug("Built run",
		zap.String("function", spec.Function),
		zap.Int("dimension", dim),
		zap.String("surrogate", spec.Surrogate),
		zap.String("kernel", spec.Kernel),
		zap.Int("initial_points", spec.InitialPoints),
		zap.Int64("seed", seed))

	return run, nil
}
