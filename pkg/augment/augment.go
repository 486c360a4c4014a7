// Package augment applies the template augmentation recipe: an affine warp on
// all channels followed by photometric effects on the color channels only.
// Keypoints are carried through the warp so bounding boxes stay correct.
package augment

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/types"
)

const maxKernel = 5

// Params is one concrete draw from a Config.
type Params struct {
	Rotate float64
	ScaleX float64
	ScaleY float64
	Shear  float64

	// Gamma is the contrast exponent. 0 disables the effect.
	Gamma float64
	// BlurKernel is the motion blur length in pixels. Values below 2 disable it.
	BlurKernel int
	// BlurAngle is the motion direction in degrees.
	BlurAngle float64
}

// Identity returns parameters that leave an image unchanged.
func Identity() Params {
	return Params{ScaleX: 1, ScaleY: 1}
}

// Matrix returns the affine map for an image of size w x h, centered on the image.
func (p Params) Matrix(w, h int) geometry.Affine {
	cx, cy := float64(w)/2, float64(h)/2
	return geometry.Translation(-cx, -cy).
		Then(geometry.Scaling(p.ScaleX, p.ScaleY)).
		Then(geometry.ShearX(p.Shear)).
		Then(geometry.Rotation(p.Rotate)).
		Then(geometry.Translation(cx, cy))
}

// Engine draws augmentation parameters and applies them.
type Engine struct {
	config Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an engine with the default recipe.
func New() *Engine {
	e, _ := NewWithConfig(DefaultConfig())
	return e
}

// NewWithConfig creates an engine with a custom recipe.
func NewWithConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{config: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Config returns the recipe the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// Sample draws a fresh set of parameters.
func (e *Engine) Sample() Params {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.config
	p := Params{
		Rotate: e.uniform(c.Rotate),
		ScaleX: e.uniform(c.Scale),
		Shear:  e.uniform(c.Shear),
	}
	if c.UniformScale {
		p.ScaleY = p.ScaleX
	} else {
		p.ScaleY = e.uniform(c.ScaleY)
	}
	if e.rng.Float64() < c.GammaProbability {
		p.Gamma = e.uniform(c.Gamma)
	}
	if e.rng.Float64() < c.BlurProbability {
		p.BlurKernel = c.BlurKernel.Min + e.rng.Intn(c.BlurKernel.Max-c.BlurKernel.Min+1)
		p.BlurAngle = e.rng.Float64() * 360
	}
	return p
}

func (e *Engine) uniform(r Range) float64 {
	return r.Min + e.rng.Float64()*(r.Max-r.Min)
}

// Augment draws parameters and applies them to img and its points.
func (e *Engine) Augment(img *imagebuf.Image, points []types.Point) (*imagebuf.Image, []types.Point, error) {
	p := e.Sample()
	logging.Logger().Debug("augment",
		"rotate", p.Rotate, "scale_x", p.ScaleX, "scale_y", p.ScaleY, "shear", p.Shear,
		"gamma", p.Gamma, "blur", p.BlurKernel)
	return Apply(img, points, p)
}

// Apply runs the affine stage on every channel, then the photometric stage on
// the color channels. The returned image has the same channel count as img.
func Apply(img *imagebuf.Image, points []types.Point, p Params) (*imagebuf.Image, []types.Point, error) {
	if err := img.Validate(); err != nil {
		return nil, nil, fmt.Errorf("augmentation failed: %w", err)
	}
	if p.ScaleX <= 0 || p.ScaleY <= 0 {
		return nil, nil, fmt.Errorf("%w: scale must be positive", types.ErrDegenerateGeometry)
	}

	m, w, h := p.Matrix(img.Width(), img.Height()).FitCanvas(img.Width(), img.Height())
	warped := warp(img, m, w, h)
	outPoints := m.ApplyPoints(points)

	colorImg, alpha := warped.SplitAlpha()
	adjusted, err := imagebuf.FromImage(photometric(colorImg.NRGBA, p), 3)
	if err != nil {
		return nil, nil, fmt.Errorf("photometric stage failed: %w", err)
	}
	out, err := imagebuf.MergeAlpha(adjusted, alpha)
	if err != nil {
		return nil, nil, fmt.Errorf("photometric stage failed: %w", err)
	}
	return out, outPoints, nil
}

// warp resamples img through m onto a w x h canvas. Uncovered pixels are
// transparent for 4-channel images and black for 3-channel images.
func warp(img *imagebuf.Image, m geometry.Affine, w, h int) *imagebuf.Image {
	fill := color.NRGBA{}
	if img.Channels == 3 {
		fill.A = 255
	}
	dst := imaging.New(w, h, fill)
	draw.BiLinear.Transform(dst, m.Aff3(), img.NRGBA, img.NRGBA.Bounds(), draw.Src, nil)
	return &imagebuf.Image{NRGBA: dst, Channels: img.Channels}
}

func photometric(img *image.NRGBA, p Params) *image.NRGBA {
	out := img
	if p.Gamma > 0 && p.Gamma != 1 {
		// AdjustGamma raises to 1/g; the recipe defines I' = 255*(I/255)^g.
		out = imaging.AdjustGamma(out, 1/p.Gamma)
	}
	if p.BlurKernel > 1 {
		out = imaging.Convolve5x5(out, motionKernel(p.BlurKernel, p.BlurAngle), &imaging.ConvolveOptions{Normalize: true})
	}
	return out
}

// motionKernel returns a 5x5 kernel holding a line of length k through the
// center at the given angle.
func motionKernel(k int, angle float64) [25]float64 {
	var kernel [25]float64
	k = min(k, maxKernel)
	half := float64(k-1) / 2
	rad := angle * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	for t := -half; t <= half+1e-9; t += 0.25 {
		x := int(math.Round(2 + t*dx))
		y := int(math.Round(2 + t*dy))
		if x < 0 || x >= maxKernel || y < 0 || y >= maxKernel {
			continue
		}
		kernel[y*maxKernel+x] = 1
	}
	return kernel
}
