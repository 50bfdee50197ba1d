package optimization

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Better reports whether value improves strictly on s in the given direction.
// A nil solution is improved upon by any value.
func (s *Solution) Better(value float64, minimization bool) bool {
	if s == nil {
		return true
	}
	if minimization {
		return value < s.Value
	}
	return value > s.Value
}

// Evaluation represents a single evaluation of the objective function
type Evaluation struct {
	Iteration int
	Solution  *Solution
	// ExpectedImprovement is the acquisition value at which the point was accepted.
	ExpectedImprovement float64
	// Target is the incumbent value the acquisition was measured against.
	Target float64
}

// StopReason tells why an optimization run ended.
type StopReason string

const (
	// StopBudget means the evaluation budget was used up.
	StopBudget StopReason = "budget"
	// StopUser means the stop callback requested termination.
	StopUser StopReason = "user"
	// StopCorrelationLength means the surrogate correlation length fell below the sampling resolution.
	StopCorrelationLength StopReason = "correlation_length"
	// StopImprovement means the expected improvement fell below the improvement threshold.
	StopImprovement StopReason = "improvement"
	// StopContext means the run's context was cancelled.
	StopContext StopReason = "context"
)

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	// Iterations is the number of completed outer iterations
	Iterations int
	// Evaluations is the number of objective function calls
	Evaluations int
	// ExpectedImprovement holds the acquisition value of each accepted candidate
	ExpectedImprovement []float64
	StopReason          StopReason
}
