package surrogate

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
)

// model implements a Gaussian Process conditioned on a training sample.
// It is shared by the Kriging and Regression backends.
type model struct {
	// Covariance model
	kernel kernels.Kernel
	trend  Trend

	// Training data
	X      *mat.Dense    // Input points (n_samples, n_features)
	y      *mat.VecDense // Target values (n_samples)
	design *mat.Dense    // Trend basis at the inputs (n_samples, n_basis), nil for a fixed mean

	// Precomputed values
	state *conditioned

	name       string
	settings   settings
	matrixPool *MatrixPool
	logger     *zap.Logger
}

// conditioned holds the factorization for one set of correlation lengths
type conditioned struct {
	chol   *mat.Cholesky // factor of R + (nugget + jitter) I
	jitter float64
	alpha  *mat.VecDense // R⁻¹ (y - Fβ)
	beta   []float64     // trend coefficients, or the fixed mean
	gChol  *mat.Cholesky // factor of Fᵀ R⁻¹ F
	sigma2 float64       // profiled process variance
	nll    float64       // concentrated negative log-likelihood
}

func newModel(name string, X *mat.Dense, y *mat.VecDense, kernel kernels.Kernel, trend Trend, s settings) (*model, error) {
	const op = "newModel"

	if X == nil || y == nil {
		return nil, optimization.WrapError(errors.New("input matrices must not be nil"), op).WithComponent(name)
	}
	if kernel == nil {
		return nil, optimization.WrapError(errors.New("kernel must not be nil"), op).WithComponent(name)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples != y.Len() {
		err := fmt.Errorf("dimension mismatch: X has %d samples but y has length %d", nSamples, y.Len())
		return nil, optimization.WrapError(err, op).WithComponent(name)
	}
	if len(kernel.Scale()) != nFeatures {
		err := fmt.Errorf("kernel has %d scales for %d features", len(kernel.Scale()), nFeatures)
		return nil, optimization.WrapError(err, op).WithComponent(name)
	}
	if p := trend.size(nFeatures); nSamples < p {
		err := fmt.Errorf("%s trend needs at least %d samples, got %d", trend, p, nSamples)
		return nil, optimization.WrapError(err, op).WithComponent(name)
	}

	m := &model{
		kernel:     kernel,
		trend:      trend,
		X:          mat.DenseCopyOf(X),
		y:          mat.VecDenseCopyOf(y),
		name:       name,
		settings:   s,
		matrixPool: NewMatrixPool(),
		logger:     s.logger.Named(name),
	}
	if p := trend.size(nFeatures); p > 0 {
		m.design = mat.NewDense(nSamples, p, nil)
		row := make([]float64, 0, p)
		for i := 0; i < nSamples; i++ {
			m.design.SetRow(i, trend.basis(row, m.X.RawRowView(i)))
		}
	}
	return m, nil
}

// fit conditions the model on its training data, estimating the correlation
// lengths and amplitude first when estimate is true.
func (m *model) fit(estimate bool) error {
	const op = "fit"

	nSamples, nFeatures := m.X.Dims()
	m.logger.Debug("Fitting surrogate",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Bool("estimate", estimate),
		zap.Float64("nugget", m.kernel.Nugget()),
	)

	if estimate {
		m.estimate()
	}

	state, err := m.condition(m.kernel)
	if err != nil {
		return optimization.WrapError(err, op).WithComponent(m.name)
	}
	m.state = state

	if estimate {
		amplitude := math.Max(math.Sqrt(state.sigma2), m.settings.minAmplitude)
		if err := m.kernel.SetAmplitude(amplitude); err != nil {
			return optimization.WrapError(err, op).WithComponent(m.name)
		}
	}

	m.logger.Debug("Successfully fitted surrogate",
		zap.Float64s("scale", m.kernel.Scale()),
		zap.Float64("amplitude", m.kernel.Amplitude()),
		zap.Float64("jitter", state.jitter),
		zap.Float64("neg_log_likelihood", state.nll),
	)
	return nil
}

// condition factorizes the correlation matrix for the kernel's current scales
// and solves for the trend and the weights.
func (m *model) condition(k kernels.Kernel) (*conditioned, error) {
	nSamples, _ := m.X.Dims()

	R := m.matrixPool.GetSymDense(nSamples)
	defer m.matrixPool.PutSymDense(R)

	diag := 1.0 + k.Nugget()
	for i := 0; i < nSamples; i++ {
		x1 := m.X.RawRowView(i)
		R.SetSym(i, i, diag)
		for j := i + 1; j < nSamples; j++ {
			R.SetSym(i, j, k.Correlation(x1, m.X.RawRowView(j)))
		}
	}

	chol, jitter, err := m.factorize(R)
	if err != nil {
		return nil, err
	}
	c := &conditioned{chol: chol, jitter: jitter}

	resid := m.matrixPool.GetVecDense(nSamples)
	defer m.matrixPool.PutVecDense(resid)
	resid.CopyVec(m.y)
	if m.design == nil {
		mu := floats.Sum(m.y.RawVector().Data) / float64(nSamples)
		c.beta = []float64{mu}
		for i := 0; i < nSamples; i++ {
			resid.SetVec(i, resid.AtVec(i)-mu)
		}
	} else {
		_, p := m.design.Dims()

		var riF mat.Dense
		if err := chol.SolveTo(&riF, m.design); err != nil {
			return nil, fmt.Errorf("failed to solve for trend basis: %w", err)
		}
		var g mat.Dense
		g.Mul(m.design.T(), &riF)
		gSym := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				gSym.SetSym(i, j, 0.5*(g.At(i, j)+g.At(j, i)))
			}
		}
		var gChol mat.Cholesky
		if ok := gChol.Factorize(gSym); !ok {
			return nil, errors.New("trend basis is rank deficient on the training sample")
		}

		var fRy mat.VecDense
		fRy.MulVec(riF.T(), m.y)
		beta := mat.NewVecDense(p, nil)
		if err := gChol.SolveVecTo(beta, &fRy); err != nil {
			return nil, fmt.Errorf("failed to solve for trend coefficients: %w", err)
		}
		var fitted mat.VecDense
		fitted.MulVec(m.design, beta)
		resid.SubVec(resid, &fitted)

		c.beta = beta.RawVector().Data
		c.gChol = &gChol
	}

	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, resid); err != nil {
		return nil, fmt.Errorf("failed to solve linear system: %w", err)
	}
	c.alpha = alpha

	c.sigma2 = mat.Dot(resid, alpha) / float64(nSamples)
	c.nll = float64(nSamples)*math.Log(math.Max(c.sigma2, 1e-300)) + chol.LogDet()
	return c, nil
}

// factorize computes the Cholesky factor of R, adding increasing jitter to the
// diagonal until the factorization succeeds with an acceptable condition number.
// R is modified in place.
func (m *model) factorize(R *mat.SymDense) (*mat.Cholesky, float64, error) {
	n := R.SymmetricDim()
	jitter := 0.0
	next := 1e-12

	for attempt := 0; attempt < m.settings.maxJitterAttempts; attempt++ {
		var chol mat.Cholesky
		if ok := chol.Factorize(R); ok && chol.Cond() < m.settings.maxCondition {
			return &chol, jitter, nil
		}

		m.logger.Debug("Cholesky factorization failed, increasing jitter",
			zap.Int("attempt", attempt+1),
			zap.Float64("jitter", next))

		for i := 0; i < n; i++ {
			R.SetSym(i, i, R.At(i, i)+next-jitter)
		}
		jitter = next
		next *= 10
	}

	return nil, jitter, errors.New("Cholesky decomposition failed: correlation matrix is not positive definite")
}

// Predict returns the mean and variance of the posterior predictive distribution
// at the given test points X*.
func (m *model) Predict(Xs *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "Predict"

	if Xs == nil {
		return nil, nil, optimization.WrapError(errors.New("input matrix X is nil"), op).WithComponent(m.name)
	}
	if m.state == nil {
		return nil, nil, optimization.WrapError(errors.New("model not trained"), op).WithComponent(m.name)
	}

	nTest, dim := Xs.Dims()
	nTrain, nFeatures := m.X.Dims()
	if dim != nFeatures {
		err := fmt.Errorf("dimension mismatch: got %d features, model has %d", dim, nFeatures)
		return nil, nil, optimization.WrapError(err, op).WithComponent(m.name)
	}

	// Correlations between test and training points
	rStar := mat.NewDense(nTest, nTrain, nil)
	for i := 0; i < nTest; i++ {
		xStar := Xs.RawRowView(i)
		for j := 0; j < nTrain; j++ {
			rStar.Set(i, j, m.kernel.Correlation(xStar, m.X.RawRowView(j)))
		}
	}

	mean := mat.NewVecDense(nTest, nil)
	mean.MulVec(rStar, m.state.alpha)
	basis := make([]float64, 0, len(m.state.beta))
	for i := 0; i < nTest; i++ {
		var trend float64
		if m.design == nil {
			trend = m.state.beta[0]
		} else {
			trend = floats.Dot(m.trend.basis(basis, Xs.RawRowView(i)), m.state.beta)
		}
		mean.SetVec(i, mean.AtVec(i)+trend)
	}

	// Solve R Z = r*ᵀ so that column i of Z is R⁻¹ r(x_i)
	var Z mat.Dense
	if err := m.state.chol.SolveTo(&Z, rStar.T()); err != nil {
		err = fmt.Errorf("failed to solve linear system: %w", err)
		return nil, nil, optimization.WrapError(err, op).WithComponent(m.name)
	}

	var fZ mat.Dense
	var u, w *mat.VecDense
	if m.design != nil {
		_, p := m.design.Dims()
		fZ.Mul(m.design.T(), &Z)
		u = mat.NewVecDense(p, nil)
		w = mat.NewVecDense(p, nil)
	}

	amp2 := m.kernel.Amplitude() * m.kernel.Amplitude()
	variance := mat.NewVecDense(nTest, nil)
	for i := 0; i < nTest; i++ {
		var quad float64
		for j := 0; j < nTrain; j++ {
			quad += rStar.At(i, j) * Z.At(j, i)
		}
		v := 1.0 - quad

		if m.design != nil {
			f := m.trend.basis(basis, Xs.RawRowView(i))
			for k := range f {
				u.SetVec(k, f[k]-fZ.At(k, i))
			}
			if err := m.state.gChol.SolveVecTo(w, u); err != nil {
				err = fmt.Errorf("failed to solve trend system: %w", err)
				return nil, nil, optimization.WrapError(err, op).WithComponent(m.name)
			}
			v += mat.Dot(u, w)
		}

		// Ensure variance is non-negative (handle numerical issues)
		variance.SetVec(i, amp2*math.Max(0, v))
	}

	return mean, variance, nil
}

// ConditionalMean returns the predictive mean at x
func (m *model) ConditionalMean(x []float64) (float64, error) {
	mean, _, err := m.Predict(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	if err != nil {
		return 0, err
	}
	return mean.AtVec(0), nil
}

// ConditionalMeanSample returns the predictive mean at each row of X
func (m *model) ConditionalMeanSample(X *mat.Dense) (*mat.VecDense, error) {
	mean, _, err := m.Predict(X)
	return mean, err
}

// ConditionalMarginalVariance returns the predictive variance at x
func (m *model) ConditionalMarginalVariance(x []float64) (float64, error) {
	_, variance, err := m.Predict(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	if err != nil {
		return 0, err
	}
	return variance.AtVec(0), nil
}

// ConditionalMarginalVarianceSample returns the predictive variance at each row of X
func (m *model) ConditionalMarginalVarianceSample(X *mat.Dense) (*mat.VecDense, error) {
	_, variance, err := m.Predict(X)
	return variance, err
}

// NuggetFactor returns the nugget factor of the covariance model
func (m *model) NuggetFactor() float64 {
	return m.kernel.Nugget()
}

// Scale returns the correlation lengths of the covariance model
func (m *model) Scale() []float64 {
	return m.kernel.Scale()
}

// Kernel returns a copy of the fitted covariance model
func (m *model) Kernel() kernels.Kernel {
	return m.kernel.Clone()
}

// InputSample returns a copy of the training inputs
func (m *model) InputSample() *mat.Dense {
	return mat.DenseCopyOf(m.X)
}

// OutputSample returns a copy of the training outputs
func (m *model) OutputSample() *mat.VecDense {
	return mat.VecDenseCopyOf(m.y)
}

// TrendCoefficients returns the fitted trend coefficients (the mean for Kriging)
func (m *model) TrendCoefficients() []float64 {
	if m.state == nil {
		return nil
	}
	return append([]float64(nil), m.state.beta...)
}

// refitted builds a model of the same family on new data
func (m *model) refitted(X *mat.Dense, y *mat.VecDense, fixedHyperparameters bool) (*model, error) {
	next, err := newModel(m.name, X, y, m.kernel.Clone(), m.trend, m.settings)
	if err != nil {
		return nil, err
	}
	if err := next.fit(!fixedHyperparameters); err != nil {
		return nil, err
	}
	return next, nil
}
