package acquisition

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// Lowest is returned when the expected improvement cannot be computed.
// It never wins a maximization against a usable value.
const Lowest = -math.MaxFloat64

// Model is the part of a surrogate the acquisition needs
type Model interface {
	Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error)
	NuggetFactor() float64
}

// ExpectedImprovement implements the Expected Improvement acquisition function.
// The returned value is always to be maximized, whatever the direction of the
// underlying problem.
type ExpectedImprovement struct {
	model Model
	// Incumbent value, or its noise-aware substitute
	target float64
	// Whether we're minimizing (true) or maximizing (false)
	minimize bool
	// Nugget factors above this value deflate the criterion
	noiseThreshold float64
}

// NewExpectedImprovement creates a new ExpectedImprovement acquisition function
// for the given surrogate and target.
func NewExpectedImprovement(model Model, target float64, minimize bool, noiseThreshold float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		model:          model,
		target:         target,
		minimize:       minimize,
		noiseThreshold: noiseThreshold,
	}
}

// Target returns the value improvements are measured against
func (ei *ExpectedImprovement) Target() float64 {
	return ei.target
}

// Evaluate computes the Expected Improvement at point x
func (ei *ExpectedImprovement) Evaluate(x []float64) (float64, error) {
	X := mat.NewDense(1, len(x), append([]float64(nil), x...))
	values, err := ei.EvaluateSample(X)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// EvaluateSample computes the Expected Improvement at each row of X with a
// single surrogate query.
func (ei *ExpectedImprovement) EvaluateSample(X *mat.Dense) ([]float64, error) {
	mean, variance, err := ei.model.Predict(X)
	if err != nil {
		return nil, optimization.WrapError(err, "failed to query surrogate").
			WithOperation("EvaluateSample").
			WithComponent("expected_improvement")
	}

	values := make([]float64, mean.Len())
	for i := range values {
		values[i] = ei.Compute(mean.AtVec(i), variance.AtVec(i))
	}
	return values, nil
}

// Compute returns the Expected Improvement for a predictive mean mu and
// variance s2. Degenerate inputs yield Lowest.
func (ei *ExpectedImprovement) Compute(mu, s2 float64) float64 {
	var improvement float64
	if ei.minimize {
		improvement = ei.target - mu
	} else {
		improvement = mu - ei.target
	}

	sigma := math.Sqrt(s2)
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || math.IsNaN(improvement) {
		return Lowest
	}

	var value float64
	if sigma == 0 {
		// Limit of the closed form as sigma vanishes
		value = math.Max(improvement, 0)
	} else {
		z := improvement / sigma
		value = improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	}

	if nugget := ei.model.NuggetFactor(); nugget > ei.noiseThreshold {
		value *= 1 - math.Sqrt(nugget/(nugget+s2))
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Lowest
	}
	return value
}

// AugmentedTarget returns the Augmented Expected Improvement incumbent: the best
// over the rows of X of m(x) + tradeoff*s(x) when minimizing, or
// m(x) - tradeoff*s(x) when maximizing.
func AugmentedTarget(model Model, X *mat.Dense, tradeoff float64, minimize bool) (float64, error) {
	mean, variance, err := model.Predict(X)
	if err != nil {
		return 0, optimization.WrapError(err, "failed to query surrogate").
			WithOperation("AugmentedTarget").
			WithComponent("expected_improvement")
	}

	scores := make([]float64, mean.Len())
	for i := range scores {
		s := math.Sqrt(math.Max(variance.AtVec(i), 0))
		if minimize {
			scores[i] = mean.AtVec(i) + tradeoff*s
		} else {
			scores[i] = mean.AtVec(i) - tradeoff*s
		}
	}
	if len(scores) == 0 {
		return 0, optimization.NewError("archive is empty").
			WithOperation("AugmentedTarget").
			WithComponent("expected_improvement").
			WithKind(optimization.KindConfiguration)
	}

	if minimize {
		return floats.Min(scores), nil
	}
	return floats.Max(scores), nil
}
