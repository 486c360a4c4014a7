package augment

import (
	"fmt"

	"github.com/menta2k/template-synth/pkg/types"
)

// Range is a closed interval [Min, Max] sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IntRange is a closed integer interval [Min, Max].
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Config holds the augmentation recipe. It is read-only once handed to an Engine.
type Config struct {
	// Rotate is the rotation range in degrees.
	Rotate Range `json:"rotate"`
	// Scale is the scale range. With UniformScale it applies to both axes,
	// otherwise it is the x range and ScaleY the y range.
	Scale        Range `json:"scale"`
	ScaleY       Range `json:"scale_y"`
	UniformScale bool  `json:"uniform_scale"`
	// Shear is the horizontal shear range in degrees.
	Shear Range `json:"shear"`

	GammaProbability float64 `json:"gamma_probability"`
	Gamma            Range   `json:"gamma"`

	BlurProbability float64  `json:"blur_probability"`
	BlurKernel      IntRange `json:"blur_kernel"`

	// Seed fixes the random source. 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the stock recipe used for traffic-sign templates.
func DefaultConfig() Config {
	return Config{
		Rotate:           Range{Min: -15, Max: 15},
		Scale:            Range{Min: 0.10, Max: 1.0},
		ScaleY:           Range{Min: 0.10, Max: 1.0},
		UniformScale:     true,
		Shear:            Range{Min: -25, Max: 25},
		GammaProbability: 0.5,
		Gamma:            Range{Min: 0.25, Max: 1.75},
		BlurProbability:  0.5,
		BlurKernel:       IntRange{Min: 3, Max: 5},
	}
}

// Validate checks that every range and probability is usable.
func (c Config) Validate() error {
	check := func(name string, r Range) error {
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s range [%g, %g] is inverted", types.ErrInvalidConfig, name, r.Min, r.Max)
		}
		return nil
	}
	for _, item := range []struct {
		name string
		r    Range
	}{
		{"rotate", c.Rotate},
		{"scale", c.Scale},
		{"scale_y", c.ScaleY},
		{"shear", c.Shear},
		{"gamma", c.Gamma},
	} {
		if err := check(item.name, item.r); err != nil {
			return err
		}
	}

	if c.Scale.Min <= 0 || (!c.UniformScale && c.ScaleY.Min <= 0) {
		return fmt.Errorf("%w: scale must be positive", types.ErrInvalidConfig)
	}
	if c.Shear.Min <= -90 || c.Shear.Max >= 90 {
		return fmt.Errorf("%w: shear must be within (-90, 90) degrees", types.ErrInvalidConfig)
	}
	if c.GammaProbability < 0 || c.GammaProbability > 1 {
		return fmt.Errorf("%w: gamma_probability must be between 0 and 1", types.ErrInvalidConfig)
	}
	if c.BlurProbability < 0 || c.BlurProbability > 1 {
		return fmt.Errorf("%w: blur_probability must be between 0 and 1", types.ErrInvalidConfig)
	}
	if c.GammaProbability > 0 && c.Gamma.Min <= 0 {
		return fmt.Errorf("%w: gamma must be positive", types.ErrInvalidConfig)
	}
	if c.BlurProbability > 0 {
		if c.BlurKernel.Min < 1 || c.BlurKernel.Max > maxKernel || c.BlurKernel.Min > c.BlurKernel.Max {
			return fmt.Errorf("%w: blur_kernel must be within [1, %d]", types.ErrInvalidConfig, maxKernel)
		}
	}
	return nil
}
