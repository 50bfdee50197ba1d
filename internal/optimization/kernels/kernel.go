package kernels

import (
	"fmt"
	"math"
)

// Kernel represents a stationary covariance model for Gaussian Processes
// with one correlation length per input dimension.
type Kernel interface {
	// Correlation computes the unit-variance correlation between x1 and x2
	Correlation(x1, x2 []float64) float64

	// Eval computes the covariance amplitude² · Correlation(x1, x2)
	Eval(x1, x2 []float64) float64

	// Scale returns the per-dimension correlation lengths
	Scale() []float64

	// SetScale replaces the correlation lengths
	SetScale(scale []float64) error

	// Amplitude returns the standard deviation of the process
	Amplitude() float64

	// SetAmplitude replaces the amplitude
	SetAmplitude(amplitude float64) error

	// Nugget returns the nugget factor, the observation noise variance relative to amplitude²
	Nugget() float64

	// Hyperparameters returns the scales followed by the amplitude
	Hyperparameters() []float64

	// SetHyperparameters sets the scales and amplitude in Hyperparameters order
	SetHyperparameters(params []float64) error

	// Clone returns an independent copy
	Clone() Kernel
}

// Names of the available kernels.
const (
	SquaredExponentialName = "squared_exponential"
	Matern52Name           = "matern52"
)

// New builds a kernel by name.
func New(name string, scale []float64, amplitude, nugget float64) (Kernel, error) {
	if err := validate(scale, amplitude, nugget); err != nil {
		return nil, err
	}
	switch name {
	case SquaredExponentialName, "":
		return NewSquaredExponential(scale, amplitude, nugget), nil
	case Matern52Name:
		return NewMatern52(scale, amplitude, nugget), nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

func validate(scale []float64, amplitude, nugget float64) error {
	if len(scale) == 0 {
		return fmt.Errorf("scale must have at least one dimension")
	}
	for i, s := range scale {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("scale[%d] must be positive and finite, got %v", i, s)
		}
	}
	if !(amplitude > 0) || math.IsInf(amplitude, 0) {
		return fmt.Errorf("amplitude must be positive and finite, got %v", amplitude)
	}
	if !(nugget >= 0) || math.IsInf(nugget, 0) {
		return fmt.Errorf("nugget must be non-negative and finite, got %v", nugget)
	}
	return nil
}

// params holds the hyperparameters shared by all stationary kernels
type params struct {
	scale     []float64
	amplitude float64
	nugget    float64
}

func newParams(scale []float64, amplitude, nugget float64) params {
	if err := validate(scale, amplitude, nugget); err != nil {
		panic(err.Error())
	}
	return params{
		scale:     append([]float64(nil), scale...),
		amplitude: amplitude,
		nugget:    nugget,
	}
}

// scaledDistance returns the Euclidean norm of (x1 - x2) / scale
func (p *params) scaledDistance(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := (x1[i] - x2[i]) / p.scale[i]
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq)
}

func (p *params) Scale() []float64 {
	return append([]float64(nil), p.scale...)
}

func (p *params) SetScale(scale []float64) error {
	if len(scale) != len(p.scale) {
		return fmt.Errorf("expected %d scales, got %d", len(p.scale), len(scale))
	}
	if err := validate(scale, p.amplitude, p.nugget); err != nil {
		return err
	}
	copy(p.scale, scale)
	return nil
}

func (p *params) Amplitude() float64 { return p.amplitude }

func (p *params) SetAmplitude(amplitude float64) error {
	if err := validate(p.scale, amplitude, p.nugget); err != nil {
		return err
	}
	p.amplitude = amplitude
	return nil
}

func (p *params) Nugget() float64 { return p.nugget }

func (p *params) Hyperparameters() []float64 {
	return append(p.Scale(), p.amplitude)
}

func (p *params) SetHyperparameters(values []float64) error {
	if len(values) != len(p.scale)+1 {
		return fmt.Errorf("expected %d hyperparameters, got %d", len(p.scale)+1, len(values))
	}
	n := len(p.scale)
	if err := validate(values[:n], values[n], p.nugget); err != nil {
		return err
	}
	copy(p.scale, values[:n])
	p.amplitude = values[n]
	return nil
}

// SquaredExponential implements the squared exponential (RBF) kernel
type SquaredExponential struct {
	params
}

// NewSquaredExponential creates a new squared exponential kernel with the given parameters
func NewSquaredExponential(scale []float64, amplitude, nugget float64) *SquaredExponential {
	return &SquaredExponential{params: newParams(scale, amplitude, nugget)}
}

// Correlation computes exp(-r²/2) with r the scaled distance
func (k *SquaredExponential) Correlation(x1, x2 []float64) float64 {
	r := k.scaledDistance(x1, x2)
	return math.Exp(-0.5 * r * r)
}

// Eval computes the covariance between x1 and x2
func (k *SquaredExponential) Eval(x1, x2 []float64) float64 {
	return k.amplitude * k.amplitude * k.Correlation(x1, x2)
}

// Clone returns an independent copy
func (k *SquaredExponential) Clone() Kernel {
	return NewSquaredExponential(k.scale, k.amplitude, k.nugget)
}

// Matern52 implements the Matérn 5/2 kernel
type Matern52 struct {
	params
}

// NewMatern52 creates a new Matérn 5/2 kernel with the given parameters
func NewMatern52(scale []float64, amplitude, nugget float64) *Matern52 {
	return &Matern52{params: newParams(scale, amplitude, nugget)}
}

// Correlation computes the Matérn 5/2 correlation between x1 and x2
func (k *Matern52) Correlation(x1, x2 []float64) float64 {
	r := math.Sqrt(5) * k.scaledDistance(x1, x2)
	return (1.0 + r + r*r/3.0) * math.Exp(-r)
}

// Eval computes the covariance between x1 and x2
func (k *Matern52) Eval(x1, x2 []float64) float64 {
	return k.amplitude * k.amplitude * k.Correlation(x1, x2)
}

// Clone returns an independent copy
func (k *Matern52) Clone() Kernel {
	return NewMatern52(k.scale, k.amplitude, k.nugget)
}
