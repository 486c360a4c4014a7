// Package background cuts fixed-size random crops out of scene photos.
package background

import (
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// maxDraws bounds the rejection sampling before falling back to a uniform draw
// over the valid positions.
const maxDraws = 1000

// Config controls crop placement.
type Config struct {
	// TopProbability is the chance the crop corner is drawn from the top half.
	TopProbability float64 `json:"top_probability"`
	// BottomCut removes that many rows from the bottom of every source image
	// before cropping (e.g. a dashboard band).
	BottomCut int `json:"bottom_cut"`
	// Seed fixes the random source. 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the crop placement used for background generation.
func DefaultConfig() Config {
	return Config{TopProbability: 0.25}
}

// Validate checks the crop parameters.
func (c Config) Validate() error {
	if c.TopProbability < 0 || c.TopProbability > 1 {
		return fmt.Errorf("%w: top_probability must be between 0 and 1", types.ErrInvalidConfig)
	}
	if c.BottomCut < 0 {
		return fmt.Errorf("%w: bottom_cut must not be negative", types.ErrInvalidConfig)
	}
	return nil
}

// Cropper draws random crops.
type Cropper struct {
	config Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a cropper with the default configuration.
func New() *Cropper {
	c, _ := NewWithConfig(DefaultConfig())
	return c
}

// NewWithConfig creates a cropper with custom configuration.
func NewWithConfig(cfg Config) (*Cropper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Cropper{config: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Prepare applies BottomCut to a source image.
func (c *Cropper) Prepare(img *imagebuf.Image) (*imagebuf.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img.CropBottom(c.config.BottomCut)
}

// Position draws the top-left corner of a w x h crop inside a bgW x bgH image.
func (c *Cropper) Position(bgW, bgH, w, h int) (types.Point, error) {
	if w <= 0 || h <= 0 {
		return types.Point{}, fmt.Errorf("%w: crop size %dx%d", types.ErrInvalidConfig, w, h)
	}
	if w > bgW || h > bgH {
		return types.Point{}, fmt.Errorf("%w: crop %dx%d does not fit into %dx%d", types.ErrDegenerateGeometry, w, h, bgW, bgH)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < maxDraws; i++ {
		p := geometry.RandomAnchor(c.rng, bgW, bgH, c.config.TopProbability)
		if p.X+w <= bgW && p.Y+h <= bgH {
			return p, nil
		}
	}
	return types.Point{X: c.rng.Intn(bgW - w + 1), Y: c.rng.Intn(bgH - h + 1)}, nil
}

// Crop cuts a random w x h region out of img.
func (c *Cropper) Crop(img *imagebuf.Image, w, h int) (*imagebuf.Image, image.Rectangle, error) {
	if err := img.Validate(); err != nil {
		return nil, image.Rectangle{}, err
	}
	p, err := c.Position(img.Width(), img.Height(), w, h)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	rect := image.Rect(p.X, p.Y, p.X+w, p.Y+h)
	out, err := img.Crop(rect)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return out, rect, nil
}
