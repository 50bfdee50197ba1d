package ego

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/acquisition"
	"github.com/copyleftdev/egoserver/internal/optimization/design"
	"github.com/copyleftdev/egoserver/internal/optimization/solver"
)

// candidateSearch maximizes the expected improvement and returns the next
// point to evaluate together with its acquisition value.
func (e *EGO) candidateSearch(ctx context.Context, ei *acquisition.ExpectedImprovement) ([]float64, float64, error) {
	const op = "candidateSearch"
	dim := e.problem.Dimension()

	var (
		evalErr error
		once    sync.Once
	)
	sub := solver.SubProblem{
		Func: func(x []float64) float64 {
			v, err := ei.Evaluate(x)
			if err != nil {
				once.Do(func() { evalErr = err })
				return acquisition.Lowest
			}
			return v
		},
		Dimension: dim,
		Bounds:    e.problem.Bounds,
		Maximize:  true,
	}

	var (
		result *solver.Result
		err    error
	)
	if e.solver != nil {
		result, err = e.solveExplicit(ctx, sub)
	} else {
		result, err = e.solveMultiStart(ctx, sub, ei)
	}
	if err != nil {
		return nil, 0, optimization.WrapError(err, "inner optimization failed").WithOperation(op).WithComponent("ego")
	}
	if evalErr != nil {
		return nil, 0, optimization.WrapError(evalErr, "expected improvement evaluation failed").WithOperation(op).WithComponent("ego")
	}

	infeasible := func(msg string) error {
		return optimization.NewError(msg).
			WithOperation(op).
			WithComponent("ego").
			WithKind(optimization.KindInfeasible)
	}
	switch {
	case result == nil || len(result.X) == 0:
		return nil, 0, infeasible("inner optimizer returned no point")
	case len(result.X) != dim:
		return nil, 0, infeasible("inner optimizer returned a point of the wrong dimension")
	case math.IsNaN(result.F) || math.IsInf(result.F, 0):
		return nil, 0, infeasible("inner optimizer returned a non-finite value")
	case !optimization.Contains(result.X, e.problem.Bounds):
		return nil, 0, infeasible("inner optimizer returned a point outside the bounds")
	}

	return append([]float64(nil), result.X...), result.F, nil
}

// solveExplicit runs the configured solver, passing the running best as a
// starting point when the solver accepts one.
func (e *EGO) solveExplicit(ctx context.Context, sub solver.SubProblem) (*solver.Result, error) {
	if sp, ok := e.solver.(solver.StartingPointSolver); ok && e.best != nil {
		return sp.SolveFrom(ctx, sub, append([]float64(nil), e.best.Parameters...))
	}
	e.logger.Debug("Solver does not accept a starting point, using its defaults")
	return e.solver.Solve(ctx, sub)
}

// solveMultiStart draws candidates in the box, keeps those with the largest
// expected improvement and starts a local search from each of them.
func (e *EGO) solveMultiStart(ctx context.Context, sub solver.SubProblem, ei *acquisition.ExpectedImprovement) (*solver.Result, error) {
	if !optimization.BoundsFinite(e.problem.Bounds) {
		return nil, optimization.NewError("default multi-start search requires finite bounds on every dimension").
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}

	generate, ok := design.Lookup(e.config.Experiment)
	if !ok {
		return nil, optimization.NewErrorf("unknown experiment %q", e.config.Experiment).
			WithComponent("ego").
			WithKind(optimization.KindConfiguration)
	}

	size := e.config.MultiStartExperimentSize
	var starts [][]float64
	if size > 0 {
		candidates, err := generate(size, e.problem.Bounds, e.rng)
		if err != nil {
			return nil, err
		}
		values, err := ei.EvaluateSample(candidates)
		if err != nil {
			return nil, err
		}

		order := make([]int, len(values))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return values[order[a]] > values[order[b]]
		})

		number := e.config.MultiStartNumber
		if number > size {
			number = size
		}
		starts = make([][]float64, 0, number)
		for _, i := range order[:number] {
			starts = append(starts, append([]float64(nil), candidates.RawRowView(i)...))
		}
		e.logger.Debug("Selected multi-start points",
			zap.Int("candidates", size),
			zap.Int("starts", len(starts)),
			zap.Float64("best_candidate_ei", values[order[0]]))
	}

	return solver.NewMultiStart(e.local, starts).Solve(ctx, sub)
}
