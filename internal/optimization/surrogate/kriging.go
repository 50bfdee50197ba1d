package surrogate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
)

// Kriging is a point-estimate Gaussian process whose mean is fixed to the
// sample mean of the outputs.
type Kriging struct {
	*model
}

var _ Surrogate = (*Kriging)(nil)

// NewKriging fits a Kriging model on X and y. The kernel is cloned, and unless
// WithFixedHyperparameters is given its scales and amplitude are estimated.
func NewKriging(X *mat.Dense, y *mat.VecDense, kernel kernels.Kernel, opts ...Option) (*Kriging, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if kernel != nil {
		kernel = kernel.Clone()
	}
	m, err := newModel("kriging", X, y, kernel, trendFixedMean, s)
	if err != nil {
		return nil, err
	}
	if err := m.fit(s.estimate); err != nil {
		return nil, err
	}
	return &Kriging{model: m}, nil
}

// Mean returns the constant mean of the model
func (k *Kriging) Mean() float64 {
	return k.state.beta[0]
}

// Refit conditions a new Kriging model on X and y
func (k *Kriging) Refit(X *mat.Dense, y *mat.VecDense, fixedHyperparameters bool) (Surrogate, error) {
	m, err := k.refitted(X, y, fixedHyperparameters)
	if err != nil {
		return nil, err
	}
	return &Kriging{model: m}, nil
}
