// Package compositor pastes templates into backgrounds and reports where they landed.
package compositor

import (
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// Config controls placement.
type Config struct {
	// OutOfImage is the fraction of the template's width/height that may
	// extend past the background edge. 0 keeps it fully inside.
	OutOfImage float64 `json:"out_of_img"`
	// TopProbability is the chance a random anchor lands in the top half.
	TopProbability float64 `json:"top_probability"`
	// Seed fixes the random source. 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the placement used for detection samples.
func DefaultConfig() Config {
	return Config{OutOfImage: 0, TopProbability: 0.5}
}

// Validate checks the placement parameters.
func (c Config) Validate() error {
	if err := geometry.ValidateOverflow(c.OutOfImage); err != nil {
		return err
	}
	if c.TopProbability < 0 || c.TopProbability > 1 {
		return fmt.Errorf("%w: top_probability must be between 0 and 1", types.ErrInvalidConfig)
	}
	return nil
}

// Placement describes a pasted template.
type Placement struct {
	// Anchor is the clamped top-left corner in background coordinates.
	Anchor types.Point
	// Box is the template rectangle at Anchor. It is not clipped to the background.
	Box types.BoundingBox
	// Points are the template keypoints in background coordinates.
	Points []types.Point
	// Visible is the share of the template outline inside the background.
	Visible float64
}

// Compositor draws random anchors and composites templates.
type Compositor struct {
	config Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a compositor with the default configuration.
func New() *Compositor {
	c, _ := NewWithConfig(DefaultConfig())
	return c
}

// NewWithConfig creates a compositor with custom configuration.
func NewWithConfig(cfg Config) (*Compositor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Compositor{config: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Config returns the compositor configuration.
func (c *Compositor) Config() Config {
	return c.config
}

// RandomAnchor draws a position inside a bgW x bgH background. x is uniform
// over the width; y falls in the top half with probability TopProbability
// and in the bottom half otherwise.
func (c *Compositor) RandomAnchor(bgW, bgH int) types.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return geometry.RandomAnchor(c.rng, bgW, bgH, c.config.TopProbability)
}

// Place pastes tpl at a random anchor using the configured overflow.
func (c *Compositor) Place(bg, tpl *imagebuf.Image, points []types.Point) (*imagebuf.Image, Placement, error) {
	if err := bg.Validate(); err != nil {
		return nil, Placement{}, fmt.Errorf("invalid background: %w", err)
	}
	anchor := c.RandomAnchor(bg.Width(), bg.Height())
	return Composite(bg, tpl, points, anchor, c.config.OutOfImage)
}

// Composite pastes tpl into a copy of bg at anchor, after pulling the anchor
// back so that no more than outOfImg of the template overflows. The template
// alpha is the blend mask. bg is left untouched.
func Composite(bg, tpl *imagebuf.Image, points []types.Point, anchor types.Point, outOfImg float64) (*imagebuf.Image, Placement, error) {
	if err := geometry.ValidateOverflow(outOfImg); err != nil {
		return nil, Placement{}, err
	}
	if err := bg.Validate(); err != nil {
		return nil, Placement{}, fmt.Errorf("invalid background: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, Placement{}, fmt.Errorf("invalid template: %w", err)
	}

	tw, th := tpl.Width(), tpl.Height()
	bw, bh := bg.Width(), bg.Height()
	anchor, err := geometry.ClampAnchor(anchor, tw, th, bw, bh, outOfImg)
	if err != nil {
		return nil, Placement{}, err
	}

	out := imaging.Overlay(bg.NRGBA, tpl.NRGBA, image.Pt(anchor.X, anchor.Y), 1.0)

	box := types.BoundingBox{X: anchor.X, Y: anchor.Y, Width: tw, Height: th}
	placed := make([]types.Point, len(points))
	for i, p := range points {
		placed[i] = p.Add(anchor)
	}

	outline := geometry.ConvexHull(placed)
	if len(outline) < 3 {
		outline = geometry.RectOutline(box)
	}

	return &imagebuf.Image{NRGBA: out, Channels: bg.Channels}, Placement{
		Anchor:  anchor,
		Box:     box,
		Points:  placed,
		Visible: geometry.VisibleFraction(outline, bw, bh),
	}, nil
}
