package ego

import (
	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/design"
)

// Config holds the tunable settings of an EGO run
type Config struct {
	// MultiStartExperimentSize is the number of candidates drawn to seed the
	// default multi-start search
	MultiStartExperimentSize int
	// MultiStartNumber is the number of best candidates kept as starting points
	MultiStartNumber int
	// ParameterEstimationPeriod triggers a full hyperparameter estimation every
	// that many evaluations. Zero disables re-estimation.
	ParameterEstimationPeriod int
	// CorrelationLengthFactor divides the minimum sampling distance in the
	// correlation length stopping test
	CorrelationLengthFactor float64
	// AEITradeoff weighs the predictive standard deviation in the noisy incumbent
	AEITradeoff float64
	// MaximumEvaluationNumber bounds the number of objective evaluations
	MaximumEvaluationNumber int
	// NoiseThreshold is the nugget factor above which the surrogate is treated as noisy
	NoiseThreshold float64
	// ImprovementFactor stops the run when the expected improvement falls below
	// ImprovementFactor * |best value|. Zero disables the test.
	ImprovementFactor float64
	// Experiment names the candidate generator of the default search
	Experiment string
	// Seed of the candidate generator. Zero picks a time based seed.
	Seed int64
}

// DefaultConfig returns the default settings
func DefaultConfig() Config {
	return Config{
		MultiStartExperimentSize:  100,
		MultiStartNumber:          20,
		ParameterEstimationPeriod: 1,
		CorrelationLengthFactor:   1.0,
		AEITradeoff:               1.0,
		MaximumEvaluationNumber:   100,
		NoiseThreshold:            1e-8,
		ImprovementFactor:         0,
		Experiment:                design.UniformName,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return optimization.NewErrorf(format, args...).
			WithOperation("Config.Validate").
			WithKind(optimization.KindConfiguration)
	}

	switch {
	case c.MultiStartExperimentSize < 0:
		return fail("multi-start experiment size must be non-negative, got %d", c.MultiStartExperimentSize)
	case c.MultiStartNumber < 0:
		return fail("multi-start number must be non-negative, got %d", c.MultiStartNumber)
	case c.ParameterEstimationPeriod < 0:
		return fail("parameter estimation period must be non-negative, got %d", c.ParameterEstimationPeriod)
	case !(c.CorrelationLengthFactor > 0):
		return fail("correlation length factor must be positive, got %v", c.CorrelationLengthFactor)
	case c.AEITradeoff < 0:
		return fail("AEI tradeoff must be non-negative, got %v", c.AEITradeoff)
	case c.MaximumEvaluationNumber < 0:
		return fail("maximum evaluation number must be non-negative, got %d", c.MaximumEvaluationNumber)
	case c.NoiseThreshold < 0:
		return fail("noise threshold must be non-negative, got %v", c.NoiseThreshold)
	case c.ImprovementFactor < 0:
		return fail("improvement factor must be non-negative, got %v", c.ImprovementFactor)
	}
	if _, ok := design.Lookup(c.Experiment); !ok {
		return fail("unknown experiment %q", c.Experiment)
	}
	return nil
}
