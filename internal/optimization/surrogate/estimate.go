package surrogate

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// penalty is returned by the likelihood when the correlation matrix cannot be factorized
const penalty = 1e300

// estimate maximizes the concentrated likelihood over the correlation lengths
// and stores the best scales found in the kernel. The search runs on log-scales
// inside a box proportional to the input range of each dimension.
func (m *model) estimate() {
	_, nFeatures := m.X.Dims()

	lower := make([]float64, nFeatures)
	upper := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		col := mat.Col(nil, j, m.X)
		span := floats.Max(col) - floats.Min(col)
		if !(span > 0) || math.IsInf(span, 0) {
			span = 1
		}
		lower[j] = math.Log(m.settings.scaleLower * span)
		upper[j] = math.Log(m.settings.scaleUpper * span)
	}

	clampLog := func(dst, t []float64) []float64 {
		for j := range t {
			dst[j] = math.Max(lower[j], math.Min(t[j], upper[j]))
		}
		return dst
	}

	start := make([]float64, nFeatures)
	for j, s := range m.kernel.Scale() {
		start[j] = math.Log(s)
	}
	clampLog(start, start)

	trial := m.kernel.Clone()
	scale := make([]float64, nFeatures)
	logScale := make([]float64, nFeatures)
	nll := func(t []float64) float64 {
		clampLog(logScale, t)
		for j := range logScale {
			scale[j] = math.Exp(logScale[j])
		}
		if err := trial.SetScale(scale); err != nil {
			return penalty
		}
		state, err := m.condition(trial)
		if err != nil || math.IsNaN(state.nll) || math.IsInf(state.nll, 0) {
			return penalty
		}
		return state.nll
	}

	startValue := nll(start)

	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{
		FuncEvaluations: m.settings.maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 50,
		},
	}
	method := &optimize.NelderMead{SimplexSize: 0.5}

	result, err := optimize.Minimize(problem, start, settings, method)
	if result == nil {
		m.logger.Debug("Hyperparameter estimation failed, keeping current scales", zap.Error(err))
		return
	}
	if !(result.F < startValue) {
		return
	}

	best := clampLog(make([]float64, nFeatures), result.X)
	for j := range best {
		best[j] = math.Exp(best[j])
	}
	if err := m.kernel.SetScale(best); err != nil {
		m.logger.Debug("Estimated scales rejected by kernel", zap.Error(err))
		return
	}

	m.logger.Debug("Estimated correlation lengths",
		zap.Float64s("scale", best),
		zap.Float64("neg_log_likelihood", result.F),
		zap.Int("evaluations", result.Stats.FuncEvaluations),
	)
}
