// Package solver provides the inner optimizers used to maximize the
// acquisition criterion. Each call receives a fresh SubProblem; solvers keep
// no state between calls.
package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// SubProblem describes one inner optimization
type SubProblem struct {
	// Func is the objective of the sub-problem
	Func func(x []float64) float64
	// Dimension is the number of inputs of Func
	Dimension int
	// Bounds constrains the search when not nil
	Bounds [][2]float64
	// Maximize selects the direction of the search
	Maximize bool
}

// Validate checks that the sub-problem can be solved
func (p SubProblem) Validate() error {
	if p.Func == nil {
		return optimization.NewError("objective function is required").
			WithComponent("solver").
			WithKind(optimization.KindConfiguration)
	}
	if p.Dimension < 1 {
		return optimization.NewErrorf("dimension must be positive, got %d", p.Dimension).
			WithComponent("solver").
			WithKind(optimization.KindConfiguration)
	}
	if p.Bounds != nil {
		if err := optimization.ValidateBounds(p.Bounds, p.Dimension); err != nil {
			return err
		}
	}
	return nil
}

// better reports whether a improves on b in the direction of the sub-problem
func (p SubProblem) better(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	if p.Maximize {
		return a > b
	}
	return a < b
}

// Result is the outcome of an inner optimization
type Result struct {
	X           []float64
	F           float64
	Evaluations int
}

// Solver solves a sub-problem
type Solver interface {
	Solve(ctx context.Context, problem SubProblem) (*Result, error)
}

// StartingPointSolver is a Solver that accepts a starting point hint
type StartingPointSolver interface {
	Solver
	SolveFrom(ctx context.Context, problem SubProblem, start []float64) (*Result, error)
}

func checkStart(problem SubProblem, start []float64) error {
	if len(start) != problem.Dimension {
		return optimization.NewError(fmt.Sprintf("starting point has dimension %d, expected %d", len(start), problem.Dimension)).
			WithComponent("solver").
			WithKind(optimization.KindConfiguration)
	}
	return nil
}
