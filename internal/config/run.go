package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/kernels"
	"github.com/copyleftdev/egoserver/internal/optimization/solver"
	"github.com/copyleftdev/egoserver/internal/optimization/surrogate"
	"github.com/copyleftdev/egoserver/internal/optimization/testfunctions"
)

// Surrogate backends accepted in a run spec
const (
	SurrogateKriging    = "kriging"
	SurrogateRegression = "regression"
)

// RunSpec describes one optimization run on a named test function
type RunSpec struct {
	Function      string      `yaml:"function" json:"function"`
	Dimension     int         `yaml:"dimension" json:"dimension"`
	Bounds        [][]float64 `yaml:"bounds" json:"bounds,omitempty"`
	Minimize      bool        `yaml:"minimize" json:"minimize"`
	NoiseSD       float64     `yaml:"noise_sd" json:"noise_sd"`
	InitialPoints int         `yaml:"initial_points" json:"initial_points"`
	Surrogate     string      `yaml:"surrogate" json:"surrogate"`
	Trend         string      `yaml:"trend" json:"trend"`
	Kernel        string      `yaml:"kernel" json:"kernel"`
	Nugget        float64     `yaml:"nugget" json:"nugget"`
	Solver        string      `yaml:"solver" json:"solver"`
	Seed          int64       `yaml:"seed" json:"seed"`
	EGO           EGO         `yaml:"ego" json:"ego"`
}

// NewRunSpec returns a spec with default settings, using defaults for the
// algorithm section
func NewRunSpec(defaults EGO) *RunSpec {
	return &RunSpec{
		Function:      "quadratic",
		Dimension:     1,
		Minimize:      true,
		InitialPoints: 5,
		Surrogate:     SurrogateKriging,
		Trend:         "constant",
		Kernel:        kernels.SquaredExponentialName,
		Solver:        solver.NelderMead.String(),
		EGO:           defaults,
	}
}

// ParseRunYAML decodes a run spec on top of the defaults and validates it
func ParseRunYAML(data []byte, defaults EGO) (*RunSpec, error) {
	spec := NewRunSpec(defaults)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(spec); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// LoadRunFile reads and validates a YAML run file
func LoadRunFile(path string, defaults EGO) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	return ParseRunYAML(data, defaults)
}

// Validate checks the spec
func (s *RunSpec) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return optimization.NewErrorf(format, args...).
			WithComponent("run_spec").
			WithKind(optimization.KindConfiguration)
	}

	fn, ok := testfunctions.Lookup(s.Function)
	if !ok {
		return fail("unknown function %q, expected one of %v", s.Function, testfunctions.Names())
	}
	if fn.Dimension > 0 && s.Dimension != fn.Dimension {
		return fail("function %s requires dimension %d, got %d", s.Function, fn.Dimension, s.Dimension)
	}
	if s.Dimension < 1 {
		return fail("dimension must be positive, got %d", s.Dimension)
	}
	if s.Bounds != nil {
		if len(s.Bounds) != s.Dimension {
			return fail("bounds have %d entries for dimension %d", len(s.Bounds), s.Dimension)
		}
		for i, b := range s.Bounds {
			if len(b) != 2 {
				return fail("bound %d must have 2 values, got %d", i, len(b))
			}
		}
		if err := optimization.ValidateBounds(s.BoxBounds(), s.Dimension); err != nil {
			return optimization.WrapError(err, "invalid bounds").
				WithComponent("run_spec").
				WithKind(optimization.KindConfiguration)
		}
	}
	if s.NoiseSD < 0 {
		return fail("noise_sd must be non-negative, got %v", s.NoiseSD)
	}
	if s.InitialPoints < 1 {
		return fail("initial_points must be positive, got %d", s.InitialPoints)
	}
	switch s.Surrogate {
	case SurrogateKriging:
	case SurrogateRegression:
		trend, ok := surrogate.ParseTrend(s.Trend)
		if !ok {
			return fail("unknown trend %q", s.Trend)
		}
		if p := trendSize(trend, s.Dimension); s.InitialPoints < p {
			return fail("%s trend needs at least %d initial points, got %d", trend, p, s.InitialPoints)
		}
	default:
		return fail("unknown surrogate %q", s.Surrogate)
	}
	if _, err := kernels.New(s.Kernel, make1(s.Dimension), 1, s.Nugget); err != nil {
		return optimization.WrapError(err, "invalid kernel").
			WithComponent("run_spec").
			WithKind(optimization.KindConfiguration)
	}
	if _, ok := solver.ParseMethod(s.Solver); !ok {
		return fail("unknown solver %q", s.Solver)
	}
	return s.EGO.Algorithm(s.Seed).Validate()
}

// BoxBounds returns the bounds of the run, falling back to the function's defaults
func (s *RunSpec) BoxBounds() [][2]float64 {
	if s.Bounds == nil {
		fn, _ := testfunctions.Lookup(s.Function)
		return fn.Bounds(s.Dimension)
	}
	bounds := make([][2]float64, len(s.Bounds))
	for i, b := range s.Bounds {
		bounds[i] = [2]float64{b[0], b[1]}
	}
	return bounds
}

func trendSize(t surrogate.Trend, dim int) int {
	if t == surrogate.TrendLinear {
		return dim + 1
	}
	return 1
}

func make1(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
