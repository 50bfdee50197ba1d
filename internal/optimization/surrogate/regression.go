package surrogate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
)

// Regression is a Gaussian process regression result. The trend coefficients
// are estimated by generalized least squares and their uncertainty is part of
// the predictive variance.
type Regression struct {
	*model
}

var _ Surrogate = (*Regression)(nil)

// NewRegression fits a Gaussian process regression on X and y with the given trend
func NewRegression(X *mat.Dense, y *mat.VecDense, kernel kernels.Kernel, trend Trend, opts ...Option) (*Regression, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if kernel != nil {
		kernel = kernel.Clone()
	}
	if trend != TrendLinear {
		trend = TrendConstant
	}
	m, err := newModel("regression", X, y, kernel, trend, s)
	if err != nil {
		return nil, err
	}
	if err := m.fit(s.estimate); err != nil {
		return nil, err
	}
	return &Regression{model: m}, nil
}

// Trend returns the trend of the model
func (r *Regression) Trend() Trend {
	return r.trend
}

// Refit conditions a new regression on X and y
func (r *Regression) Refit(X *mat.Dense, y *mat.VecDense, fixedHyperparameters bool) (Surrogate, error) {
	m, err := r.refitted(X, y, fixedHyperparameters)
	if err != nil {
		return nil, err
	}
	return &Regression{model: m}, nil
}
