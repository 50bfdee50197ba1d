package optimization

import "fmt"

// ObjectiveFunction defines a scalar function to be optimized
type ObjectiveFunction func([]float64) (float64, error)

// Function is a vector-valued function of a vector input.
type Function interface {
	// InputDimension returns the size of the input vector
	InputDimension() int
	// OutputDimension returns the size of the output vector
	OutputDimension() int
	// Evaluate computes the function at x
	Evaluate(x []float64) ([]float64, error)
}

// scalarFunction adapts an ObjectiveFunction to Function
type scalarFunction struct {
	dim int
	f   ObjectiveFunction
}

// NewScalarFunction wraps f as a Function with the given input dimension and a single output.
func NewScalarFunction(dim int, f ObjectiveFunction) Function {
	return &scalarFunction{dim: dim, f: f}
}

func (s *scalarFunction) InputDimension() int  { return s.dim }
func (s *scalarFunction) OutputDimension() int { return 1 }

func (s *scalarFunction) Evaluate(x []float64) ([]float64, error) {
	v, err := s.f(x)
	if err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

// VariableType describes the domain of one input variable.
type VariableType int

const (
	// Continuous variables take any real value within their bounds.
	Continuous VariableType = iota
	// Integer variables take integral values.
	Integer
	// Binary variables take the values 0 and 1.
	Binary
)

// Problem describes an optimization problem.
type Problem struct {
	// Objective function to optimize
	Objective Function

	// Bounds for each dimension [min, max]. A nil slice means the domain is unbounded;
	// individual entries may be infinite.
	Bounds [][2]float64

	// Minimization selects the direction of the optimization.
	Minimization bool

	// EqualityConstraint, if set, must vanish at a feasible point.
	EqualityConstraint Function

	// InequalityConstraint, if set, must be non-negative at a feasible point.
	InequalityConstraint Function

	// Variables gives the type of each input variable. Empty means all continuous.
	Variables []VariableType
}

// Dimension returns the input dimension of the problem.
func (p *Problem) Dimension() int {
	if p.Objective == nil {
		return len(p.Bounds)
	}
	return p.Objective.InputDimension()
}

// HasBounds reports whether the problem declares bounds.
func (p *Problem) HasBounds() bool {
	return len(p.Bounds) > 0
}

// IsContinuous reports whether every variable is continuous.
func (p *Problem) IsContinuous() bool {
	for _, v := range p.Variables {
		if v != Continuous {
			return false
		}
	}
	return true
}

// CheckProblem verifies that p can be handled by a single-objective,
// unconstrained, continuous optimizer.
func CheckProblem(p *Problem) error {
	const op = "CheckProblem"

	fail := func(format string, args ...interface{}) error {
		return NewErrorf(format, args...).WithOperation(op).WithKind(KindConfiguration)
	}

	if p == nil || p.Objective == nil {
		return fail("problem has no objective function")
	}
	if out := p.Objective.OutputDimension(); out != 1 {
		return fail("objective output dimension is %d, expected 1", out)
	}
	dim := p.Objective.InputDimension()
	if dim < 1 {
		return fail("objective input dimension is %d, expected at least 1", dim)
	}
	if p.EqualityConstraint != nil {
		return fail("equality constraints are not supported")
	}
	if p.InequalityConstraint != nil {
		return fail("inequality constraints are not supported")
	}
	if !p.IsContinuous() {
		return fail("only continuous domains are supported")
	}
	if len(p.Variables) > 0 && len(p.Variables) != dim {
		return fail("%d variable types given for dimension %d", len(p.Variables), dim)
	}
	if p.HasBounds() {
		if err := ValidateBounds(p.Bounds, dim); err != nil {
			return WrapError(err, "invalid bounds").WithOperation(op).WithKind(KindConfiguration)
		}
	}
	return nil
}

// ValidateBounds checks that bounds has dim entries with lower <= upper.
func ValidateBounds(bounds [][2]float64, dim int) error {
	if len(bounds) != dim {
		return fmt.Errorf("bounds have dimension %d, expected %d", len(bounds), dim)
	}
	for i, b := range bounds {
		if b[0] != b[0] || b[1] != b[1] {
			return fmt.Errorf("bound %d is NaN", i)
		}
		if b[0] > b[1] {
			return fmt.Errorf("bound %d is empty: lower %v > upper %v", i, b[0], b[1])
		}
	}
	return nil
}
