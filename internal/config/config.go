package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/egoserver/internal/optimization/ego"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		MaxConcurrentRuns int           `env:"OPT_MAX_CONCURRENT_RUNS" envDefault:"4"`
		RunTimeout        time.Duration `env:"OPT_RUN_TIMEOUT" envDefault:"10m"`
	}
	EGO EGO
}

// EGO holds the default algorithm settings. The same fields can be overridden
// per run in a run file.
type EGO struct {
	MultiStartExperimentSize  int     `env:"EGO_MULTISTART_EXPERIMENT_SIZE" envDefault:"100" yaml:"multistart_experiment_size" json:"multistart_experiment_size"`
	MultiStartNumber          int     `env:"EGO_MULTISTART_NUMBER" envDefault:"20" yaml:"multistart_number" json:"multistart_number"`
	ParameterEstimationPeriod int     `env:"EGO_PARAMETER_ESTIMATION_PERIOD" envDefault:"1" yaml:"parameter_estimation_period" json:"parameter_estimation_period"`
	CorrelationLengthFactor   float64 `env:"EGO_CORRELATION_LENGTH_FACTOR" envDefault:"1.0" yaml:"correlation_length_factor" json:"correlation_length_factor"`
	AEITradeoff               float64 `env:"EGO_AEI_TRADEOFF" envDefault:"1.0" yaml:"aei_tradeoff" json:"aei_tradeoff"`
	MaximumEvaluations        int     `env:"EGO_MAXIMUM_EVALUATIONS" envDefault:"100" yaml:"maximum_evaluations" json:"maximum_evaluations"`
	NoiseThreshold            float64 `env:"EGO_NOISE_THRESHOLD" envDefault:"1e-8" yaml:"noise_threshold" json:"noise_threshold"`
	ImprovementFactor         float64 `env:"EGO_IMPROVEMENT_FACTOR" envDefault:"0" yaml:"improvement_factor" json:"improvement_factor"`
	Experiment                string  `env:"EGO_EXPERIMENT" envDefault:"uniform" yaml:"experiment" json:"experiment"`
}

// DefaultEGO returns the built-in algorithm defaults
func DefaultEGO() EGO {
	d := ego.DefaultConfig()
	return EGO{
		MultiStartExperimentSize:  d.MultiStartExperimentSize,
		MultiStartNumber:          d.MultiStartNumber,
		ParameterEstimationPeriod: d.ParameterEstimationPeriod,
		CorrelationLengthFactor:   d.CorrelationLengthFactor,
		AEITradeoff:               d.AEITradeoff,
		MaximumEvaluations:        d.MaximumEvaluationNumber,
		NoiseThreshold:            d.NoiseThreshold,
		ImprovementFactor:         d.ImprovementFactor,
		Experiment:                d.Experiment,
	}
}

// Algorithm converts the settings into an algorithm configuration
func (e EGO) Algorithm(seed int64) ego.Config {
	return ego.Config{
		MultiStartExperimentSize:  e.MultiStartExperimentSize,
		MultiStartNumber:          e.MultiStartNumber,
		ParameterEstimationPeriod: e.ParameterEstimationPeriod,
		CorrelationLengthFactor:   e.CorrelationLengthFactor,
		AEITradeoff:               e.AEITradeoff,
		MaximumEvaluationNumber:   e.MaximumEvaluations,
		NoiseThreshold:            e.NoiseThreshold,
		ImprovementFactor:         e.ImprovementFactor,
		Experiment:                e.Experiment,
		Seed:                      seed,
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.EGO.Algorithm(0).Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
