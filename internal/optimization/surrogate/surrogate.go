// Package surrogate provides the Gaussian process models that stand in for an
// expensive objective during Efficient Global Optimization.
//
// Two backends share one query surface: Kriging, a point-estimate model with a
// constant mean fixed to the sample mean, and Regression, a full regression
// result whose trend coefficients are estimated by generalized least squares and
// whose predictive variance carries the trend uncertainty.
package surrogate

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Surrogate is the query surface the optimizer needs from a fitted model.
// Implementations are immutable once built: Refit returns a new value.
type Surrogate interface {
	// ConditionalMean returns the predictive mean at x
	ConditionalMean(x []float64) (float64, error)

	// ConditionalMeanSample returns the predictive mean at each row of X
	ConditionalMeanSample(X *mat.Dense) (*mat.VecDense, error)

	// ConditionalMarginalVariance returns the predictive variance at x
	ConditionalMarginalVariance(x []float64) (float64, error)

	// ConditionalMarginalVarianceSample returns the predictive variance at each row of X
	ConditionalMarginalVarianceSample(X *mat.Dense) (*mat.VecDense, error)

	// Predict returns mean and variance at each row of X in a single pass
	Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error)

	// NuggetFactor returns the observation noise factor of the covariance model
	NuggetFactor() float64

	// Scale returns the per-dimension correlation lengths
	Scale() []float64

	// Refit conditions a new model on X and y. When fixedHyperparameters is
	// true the covariance hyperparameters are kept, otherwise they are re-estimated.
	Refit(X *mat.Dense, y *mat.VecDense, fixedHyperparameters bool) (Surrogate, error)

	// InputSample returns a copy of the training inputs
	InputSample() *mat.Dense

	// OutputSample returns a copy of the training outputs
	OutputSample() *mat.VecDense
}

// Trend selects the deterministic part of a Regression model.
type Trend int

const (
	// TrendConstant estimates a single intercept.
	TrendConstant Trend = iota
	// TrendLinear estimates an intercept and one slope per input dimension.
	TrendLinear
	// trendFixedMean uses the sample mean without estimation (Kriging).
	trendFixedMean
)

// String returns the name of the trend.
func (t Trend) String() string {
	switch t {
	case TrendConstant:
		return "constant"
	case TrendLinear:
		return "linear"
	default:
		return "fixed_mean"
	}
}

// ParseTrend converts a trend name into a Trend.
func ParseTrend(name string) (Trend, bool) {
	switch name {
	case "constant", "":
		return TrendConstant, true
	case "linear":
		return TrendLinear, true
	default:
		return 0, false
	}
}

// size returns the number of basis functions for dimension dim
func (t Trend) size(dim int) int {
	switch t {
	case TrendConstant:
		return 1
	case TrendLinear:
		return dim + 1
	default:
		return 0
	}
}

// basis evaluates the trend basis at x into dst
func (t Trend) basis(dst, x []float64) []float64 {
	dst = dst[:0]
	switch t {
	case TrendConstant:
		dst = append(dst, 1)
	case TrendLinear:
		dst = append(dst, 1)
		dst = append(dst, x...)
	}
	return dst
}

// settings controls fitting
type settings struct {
	logger            *zap.Logger
	estimate          bool
	scaleLower        float64
	scaleUpper        float64
	maxEvaluations    int
	minAmplitude      float64
	maxJitterAttempts int
	maxCondition      float64
}

func defaultSettings() settings {
	return settings{
		logger:            zap.NewNop(),
		estimate:          true,
		scaleLower:        1e-2,
		scaleUpper:        1e2,
		maxEvaluations:    200,
		minAmplitude:      1e-8,
		maxJitterAttempts: 10,
		maxCondition:      1e13,
	}
}

// Option configures how a surrogate is fitted
type Option func(*settings)

// WithLogger sets the logger used while fitting
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFixedHyperparameters keeps the kernel's hyperparameters as given
// instead of estimating them on the initial fit.
func WithFixedHyperparameters() Option {
	return func(s *settings) {
		s.estimate = false
	}
}

// WithScaleBounds sets the search box for correlation lengths, as factors of
// the input range in each dimension.
func WithScaleBounds(lower, upper float64) Option {
	return func(s *settings) {
		if lower > 0 && upper > lower {
			s.scaleLower = lower
			s.scaleUpper = upper
		}
	}
}

// WithMaxEvaluations bounds the likelihood evaluations of one estimation
func WithMaxEvaluations(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxEvaluations = n
		}
	}
}
