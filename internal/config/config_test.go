package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Optimization.MaxConcurrentRuns)
	assert.Equal(t, DefaultEGO(), cfg.EGO)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EGO_MULTISTART_NUMBER", "5")
	t.Setenv("EGO_AEI_TRADEOFF", "2.5")
	t.Setenv("EGO_MAXIMUM_EVALUATIONS", "40")
	t.Setenv("EGO_EXPERIMENT", "lhs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.EGO.MultiStartNumber)
	assert.Equal(t, 2.5, cfg.EGO.AEITradeoff)
	assert.Equal(t, 40, cfg.EGO.MaximumEvaluations)
	assert.Equal(t, "lhs", cfg.EGO.Experiment)
	assert.Equal(t, 100, cfg.EGO.MultiStartExperimentSize)
}

func TestLoadLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		want        string
	}{
		{"development defaults to debug", "development", "", "debug"},
		{"production defaults to info", "production", "", "info"},
		{"explicit level wins", "development", "warn", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", tt.environment)
			t.Setenv("LOG_LEVEL", tt.level)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Logging.Level)
		})
	}
}

func TestLoadRejectsInvalidEGOSettings(t *testing.T) {
	t.Setenv("EGO_MAXIMUM_EVALUATIONS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, optimization.IsKind(err, optimization.KindConfiguration))
}

func TestAlgorithm(t *testing.T) {
	e := DefaultEGO()
	e.ImprovementFactor = 1e-3

	cfg := e.Algorithm(42)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, e.MaximumEvaluations, cfg.MaximumEvaluationNumber)
	assert.Equal(t, 1e-3, cfg.ImprovementFactor)
	assert.NoError(t, cfg.Validate())
}

func TestParseRunYAML(t *testing.T) {
	data := []byte(`
function: branin
dimension: 2
minimize: true
initial_points: 8
surrogate: regression
trend: linear
kernel: matern52
nugget: 0.001
seed: 11
ego:
  maximum_evaluations: 25
  experiment: lhs
`)
	spec, err := ParseRunYAML(data, DefaultEGO())
	require.NoError(t, err)

	assert.Equal(t, "branin", spec.Function)
	assert.Equal(t, 8, spec.InitialPoints)
	assert.Equal(t, SurrogateRegression, spec.Surrogate)
	assert.Equal(t, "matern52", spec.Kernel)
	assert.Equal(t, int64(11), spec.Seed)
	assert.Equal(t, 25, spec.EGO.MaximumEvaluations)
	assert.Equal(t, "lhs", spec.EGO.Experiment)
	// Settings absent from the file keep their defaults
	assert.Equal(t, 20, spec.EGO.MultiStartNumber)
	assert.Equal(t, [][2]float64{{-5, 10}, {0, 15}}, spec.BoxBounds())
}

func TestParseRunYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown function", "function: ackley\n"},
		{"fixed dimension", "function: branin\ndimension: 3\n"},
		{"zero dimension", "function: sphere\ndimension: 0\n"},
		{"bounds count", "function: sphere\ndimension: 2\nbounds: [[-1, 1]]\n"},
		{"bound pair", "function: sphere\nbounds: [[-1, 0, 1]]\n"},
		{"reversed bounds", "function: sphere\nbounds: [[1, -1]]\n"},
		{"negative noise", "noise_sd: -0.1\n"},
		{"no initial points", "initial_points: 0\n"},
		{"unknown surrogate", "surrogate: forest\n"},
		{"unknown trend", "surrogate: regression\ntrend: cubic\n"},
		{"linear trend sample", "function: sphere\ndimension: 4\nsurrogate: regression\ntrend: linear\ninitial_points: 3\n"},
		{"unknown kernel", "kernel: periodic\n"},
		{"negative nugget", "nugget: -1\n"},
		{"unknown solver", "solver: cobyla\n"},
		{"invalid ego settings", "ego:\n  multistart_number: -2\n"},
		{"unknown field", "budget: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRunYAML([]byte(tt.data), DefaultEGO())
			assert.Error(t, err)
		})
	}
}

func TestLoadRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("function: quadratic\nbounds: [[-2, 8]]\n"), 0o600))

	spec, err := LoadRunFile(path, DefaultEGO())
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{-2, 8}}, spec.BoxBounds())
	assert.True(t, spec.Minimize)

	_, err = LoadRunFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultEGO())
	assert.Error(t, err)
}
