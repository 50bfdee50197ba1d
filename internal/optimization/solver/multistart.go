package solver

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// MultiStart runs a local solver from several starting points in parallel and
// keeps the best result. Ties go to the lowest start index.
type MultiStart struct {
	Local       *Local
	Starts      [][]float64
	Concurrency int
}

var _ StartingPointSolver = (*MultiStart)(nil)

// NewMultiStart creates a MultiStart solver over the given starting points
func NewMultiStart(local *Local, starts [][]float64) *MultiStart {
	if local == nil {
		local = NewLocal()
	}
	return &MultiStart{
		Local:       local,
		Starts:      starts,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// Solve runs from every configured start
func (m *MultiStart) Solve(ctx context.Context, problem SubProblem) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if len(m.Starts) == 0 {
		return m.Local.Solve(ctx, problem)
	}

	results := make([]*Result, len(m.Starts))

	concurrency := m.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	p := pool.New().WithMaxGoroutines(concurrency).WithContext(ctx)
	for i, start := range m.Starts {
		i, start := i, start
		p.Go(func(ctx context.Context) error {
			r, err := m.Local.SolveFrom(ctx, problem, start)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var best *Result
	evaluations := 0
	for _, r := range results {
		evaluations += r.Evaluations
		if best == nil || problem.better(r.F, best.F) {
			best = r
		}
	}
	if best == nil {
		return nil, optimization.NewError("no starting point produced a result").
			WithComponent("solver").
			WithKind(optimization.KindInfeasible)
	}
	return &Result{X: best.X, F: best.F, Evaluations: evaluations}, nil
}

// SolveFrom adds start in front of the configured starts
func (m *MultiStart) SolveFrom(ctx context.Context, problem SubProblem, start []float64) (*Result, error) {
	if err := checkStart(problem, start); err != nil {
		return nil, err
	}
	starts := make([][]float64, 0, len(m.Starts)+1)
	starts = append(starts, start)
	starts = append(starts, m.Starts...)
	next := &MultiStart{Local: m.Local, Starts: starts, Concurrency: m.Concurrency}
	return next.Solve(ctx, problem)
}
