// Package ego implements Efficient Global Optimization: a sequential,
// surrogate-based optimizer for expensive black-box objectives.
//
// Each iteration maximizes the Expected Improvement of a Gaussian process
// surrogate, evaluates the objective at the maximizer, and refits the
// surrogate on the enlarged archive.
package ego

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/acquisition"
	"github.com/copyleftdev/egoserver/internal/optimization/solver"
	"github.com/copyleftdev/egoserver/internal/optimization/surrogate"
)

// ProgressCallback receives the percentage of the evaluation budget used
type ProgressCallback func(percent float64)

// StopCallback requests termination when it returns true
type StopCallback func() bool

// Result is the outcome of a run
type Result struct {
	optimization.OptimizationResult
	// Surrogate is the final surrogate state, conditioned on the whole archive
	Surrogate surrogate.Surrogate
	// Archive holds every evaluated point, initial sample included
	Archive *Archive
}

// EGO runs Efficient Global Optimization on a problem
type EGO struct {
	problem   *optimization.Problem
	config    Config
	surrogate surrogate.Surrogate
	archive   *Archive
	best      *optimization.Solution

	solver   solver.Solver
	local    *solver.Local
	progress ProgressCallback
	stop     StopCallback
	observer Observer
	logger   *zap.Logger
	rng      *rand.Rand

	result *Result
}

// New creates an EGO run for problem, starting from the training sample and
// state of the initial surrogate.
func New(problem *optimization.Problem, initial surrogate.Surrogate, cfg Config) (*EGO, error) {
	const op = "New"

	if err := optimization.CheckProblem(problem); err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, optimization.NewError("an initial surrogate is required").
			WithOperation(op).
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}

	X, y := initial.InputSample(), initial.OutputSample()
	n, dim := X.Dims()
	if n == 0 {
		return nil, optimization.NewError("the initial surrogate has an empty training sample").
			WithOperation(op).
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}
	if dim != problem.Dimension() {
		return nil, optimization.NewErrorf("training sample has dimension %d, problem has dimension %d", dim, problem.Dimension()).
			WithOperation(op).
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}

	e := &EGO{
		problem:   problem,
		config:    cfg,
		surrogate: initial,
		archive:   newArchive(X, y),
		local:     solver.NewLocal(),
		observer:  nopObserver{},
		logger:    zap.NewNop().Named("ego"),
	}
	return e, nil
}

// SetSolver sets the inner solver used to maximize the expected improvement.
// A nil solver selects the default multi-start search.
func (e *EGO) SetSolver(s solver.Solver) {
	e.solver = s
}

// SetLocalSolver sets the local solver run from each start of the default search
func (e *EGO) SetLocalSolver(l *solver.Local) {
	if l != nil {
		e.local = l
	}
}

// SetMultiStartExperimentSize sets the number of candidates of the default search
func (e *EGO) SetMultiStartExperimentSize(n int) {
	e.config.MultiStartExperimentSize = n
}

// SetMultiStartNumber sets the number of starting points of the default search
func (e *EGO) SetMultiStartNumber(n int) {
	e.config.MultiStartNumber = n
}

// SetParameterEstimationPeriod sets how often hyperparameters are re-estimated
func (e *EGO) SetParameterEstimationPeriod(period int) {
	e.config.ParameterEstimationPeriod = period
}

// SetCorrelationLengthFactor sets the factor of the correlation length stopping test
func (e *EGO) SetCorrelationLengthFactor(factor float64) {
	e.config.CorrelationLengthFactor = factor
}

// SetAEITradeoff sets the weight of the standard deviation in the noisy incumbent
func (e *EGO) SetAEITradeoff(tradeoff float64) {
	e.config.AEITradeoff = tradeoff
}

// SetMaximumEvaluationNumber sets the evaluation budget
func (e *EGO) SetMaximumEvaluationNumber(n int) {
	e.config.MaximumEvaluationNumber = n
}

// SetImprovementFactor sets the relative expected improvement below which the run stops
func (e *EGO) SetImprovementFactor(factor float64) {
	e.config.ImprovementFactor = factor
}

// SetProgressCallback sets the progress callback
func (e *EGO) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// SetStopCallback sets the stop callback
func (e *EGO) SetStopCallback(cb StopCallback) {
	e.stop = cb
}

// SetObserver sets the run observer
func (e *EGO) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	e.observer = o
}

// SetLogger sets the logger
func (e *EGO) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.logger = logger.Named("ego")
	e.local.Logger = e.logger.Named("solver")
}

// Config returns the current settings
func (e *EGO) Config() Config {
	return e.config
}

// Run executes the optimization loop until the budget is spent or a stopping
// test fires. Cancelling ctx aborts the run with the context error.
func (e *EGO) Run(ctx context.Context) (*Result, error) {
	if err := optimization.CheckProblem(e.problem); err != nil {
		return nil, err
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.solver == nil && !optimization.BoundsFinite(e.problem.Bounds) {
		return nil, optimization.NewError("default multi-start search requires finite bounds on every dimension").
			WithOperation("Run").
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}

	seed := e.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.rng = rand.New(rand.NewSource(seed))

	minimize := e.problem.Minimization
	dim := e.problem.Dimension()

	// Seed the running best from the archive, first seen wins ties
	e.best = nil
	for i, x := range e.archive.Inputs {
		e.updateBest(x, e.archive.Outputs[i])
	}

	budget := e.config.MaximumEvaluationNumber
	e.result = &Result{
		OptimizationResult: optimization.OptimizationResult{
			BestSolution:        e.bestCopy(),
			History:             make([]optimization.Evaluation, 0, budget),
			ExpectedImprovement: make([]float64, 0, budget),
			StopReason:          optimization.StopBudget,
		},
		Surrogate: e.surrogate,
		Archive:   e.archive,
	}

	tracker := newDistanceTracker(dim)

	e.logger.Info("Starting optimization",
		zap.Int("dimension", dim),
		zap.Bool("minimization", minimize),
		zap.Int("archive_size", e.archive.Len()),
		zap.Int("budget", budget),
		zap.Float64("best_value", e.best.Value))

	evaluations := 0
	for evaluations < budget {
		select {
		case <-ctx.Done():
			e.result.StopReason = optimization.StopContext
			return nil, ctx.Err()
		default:
		}

		nugget := e.surrogate.NuggetFactor()
		noisy := nugget > e.config.NoiseThreshold

		// Acquisition target
		target := e.best.Value
		if noisy {
			X, _ := e.archive.Matrices()
			t, err := acquisition.AugmentedTarget(e.surrogate, X, e.config.AEITradeoff, minimize)
			if err != nil {
				return nil, err
			}
			target = t
		}
		ei := acquisition.NewExpectedImprovement(e.surrogate, target, minimize, e.config.NoiseThreshold)

		x, eiValue, err := e.candidateSearch(ctx, ei)
		if err != nil {
			return nil, err
		}

		value, err := e.evaluate(x)
		if err != nil {
			return nil, err
		}
		evaluations++

		// Bookkeeping
		if !noisy {
			tracker.Update(x, e.archive.Inputs)
		}
		e.updateBest(x, value)
		e.archive.Add(x, value)
		e.result.ExpectedImprovement = append(e.result.ExpectedImprovement, eiValue)
		e.result.History = append(e.result.History, optimization.Evaluation{
			Iteration: evaluations,
			Solution: &optimization.Solution{
				Parameters: x,
				Value:      value,
			},
			ExpectedImprovement: eiValue,
			Target:              target,
		})
		e.result.Iterations = evaluations
		e.result.Evaluations = evaluations
		e.result.BestSolution = e.bestCopy()
		e.observer.ObserveEvaluation(value, e.best.Value)
		e.observer.ObserveExpectedImprovement(eiValue)

		e.logger.Debug("Evaluated candidate",
			zap.Int("iteration", evaluations),
			zap.Float64s("x", x),
			zap.Float64("value", value),
			zap.Float64("expected_improvement", eiValue),
			zap.Float64("target", target),
			zap.Float64("best_value", e.best.Value))

		// Stopping tests
		var reason optimization.StopReason
		if !noisy {
			if d, ok := tracker.Exceeded(e.surrogate.Scale(), e.config.CorrelationLengthFactor); ok {
				e.logger.Info("Correlation length below sampling resolution",
					zap.Int("dimension", d),
					zap.Float64s("scale", e.surrogate.Scale()),
					zap.Float64s("minimum_distance", tracker.Minimum()))
				reason = optimization.StopCorrelationLength
			}
		}
		if reason == "" && e.config.ImprovementFactor > 0 && eiValue < e.config.ImprovementFactor*math.Abs(e.best.Value) {
			reason = optimization.StopImprovement
		}
		if e.progress != nil {
			e.progress(100 * float64(evaluations) / float64(budget))
		}
		if e.stop != nil && e.stop() {
			e.logger.Warn("Optimization stopped by user", zap.Int("iteration", evaluations))
			reason = optimization.StopUser
		}

		if err := e.refit(evaluations); err != nil {
			return nil, err
		}
		e.result.Surrogate = e.surrogate

		if reason != "" {
			e.result.StopReason = reason
			break
		}
	}

	e.observer.ObserveStop(e.result.StopReason)
	e.logger.Info("Optimization finished",
		zap.String("reason", string(e.result.StopReason)),
		zap.Int("evaluations", evaluations),
		zap.Float64s("best_x", e.best.Parameters),
		zap.Float64("best_value", e.best.Value))

	return e.result, nil
}

// evaluate calls the objective at x
func (e *EGO) evaluate(x []float64) (float64, error) {
	out, err := e.problem.Objective.Evaluate(x)
	if err != nil {
		return 0, optimization.WrapError(err, "objective evaluation failed").
			WithOperation("evaluate").
			WithComponent("ego").
			WithKind(optimization.KindEvaluation)
	}
	if len(out) != 1 || math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		return 0, optimization.NewErrorf("objective returned %v at %v", out, x).
			WithOperation("evaluate").
			WithComponent("ego").
			WithKind(optimization.KindEvaluation)
	}
	return out[0], nil
}

// updateBest records x if value is strictly better than the running best
func (e *EGO) updateBest(x []float64, value float64) {
	if e.best.Better(value, e.problem.Minimization) {
		e.best = &optimization.Solution{
			Parameters: append([]float64(nil), x...),
			Value:      value,
		}
	}
}

func (e *EGO) bestCopy() *optimization.Solution {
	if e.best == nil {
		return nil
	}
	return &optimization.Solution{
		Parameters: append([]float64(nil), e.best.Parameters...),
		Value:      e.best.Value,
	}
}

// Result returns the result of the last run, or nil before any run
func (e *EGO) Result() *Result {
	return e.result
}

// ExpectedImprovement returns the acquisition value of each accepted candidate
func (e *EGO) ExpectedImprovement() []float64 {
	if e.result == nil {
		return nil
	}
	return append([]float64(nil), e.result.ExpectedImprovement...)
}

// Surrogate returns the current surrogate
func (e *EGO) Surrogate() surrogate.Surrogate {
	return e.surrogate
}

// BestSolution returns the running best
func (e *EGO) BestSolution() *optimization.Solution {
	return e.bestCopy()
}

// Archive returns the training archive
func (e *EGO) Archive() *Archive {
	return e.archive
}
