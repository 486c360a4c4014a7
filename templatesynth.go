// Package templatesynth generates labeled training images for object
// detectors and classifiers from a handful of object templates.
//
// Templates are augmented (rotation, scale, shear, gamma, motion blur) while
// their keypoints are tracked through every transform, trimmed of fully
// transparent rows and columns, and pasted onto background photos. The
// bounding box of every pasted template is stored next to the image under a
// numbered, collision-free index.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		templatesynth "github.com/menta2k/template-synth"
//		"github.com/menta2k/template-synth/pkg/dataset"
//	)
//
//	func main() {
//		synth := templatesynth.New()
//
//		tpl, err := synth.LoadTemplate("stop.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//		bg, err := synth.LoadBackground("road.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ds, err := dataset.Open("detection")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		sample, err := synth.Generate(bg, tpl, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if _, err := synth.Commit(ds, sample, "stop"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these main components:
//
// 1. Augment (pkg/augment): affine and photometric template augmentation
// 2. Trim (pkg/trim): removal of fully transparent lines
// 3. Compositor (pkg/compositor): template placement and bounding boxes
// 4. Dataset (pkg/dataset): numbered image and ground-truth storage
// 5. Pipeline (pkg/pipeline): the batch stages behind the cmd tools
package templatesynth

import (
	"fmt"

	"github.com/menta2k/template-synth/pkg/augment"
	"github.com/menta2k/template-synth/pkg/compositor"
	"github.com/menta2k/template-synth/pkg/dataset"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/trim"
	"github.com/menta2k/template-synth/pkg/types"
)

// Version of the template-synth library
const Version = "1.0.0"

// Synthesizer provides a high-level interface for generating single samples
type Synthesizer struct {
	engine     *augment.Engine
	compositor *compositor.Compositor
}

// Sample is one generated image with the location of its template.
type Sample struct {
	Image  *imagebuf.Image
	Box    types.BoundingBox
	Points []types.Point
	// Visible is the share of the template inside the image.
	Visible float64
}

// New creates a new Synthesizer with default configuration
func New() *Synthesizer {
	return &Synthesizer{
		engine:     augment.New(),
		compositor: compositor.New(),
	}
}

// NewWithConfig creates a new Synthesizer with custom configuration
func NewWithConfig(augmentConfig augment.Config, placementConfig compositor.Config) (*Synthesizer, error) {
	engine, err := augment.NewWithConfig(augmentConfig)
	if err != nil {
		return nil, err
	}
	comp, err := compositor.NewWithConfig(placementConfig)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{engine: engine, compositor: comp}, nil
}

// LoadTemplate loads a template with its alpha channel
func (s *Synthesizer) LoadTemplate(path string) (*imagebuf.Image, error) {
	return imagebuf.Load(path, 4)
}

// LoadBackground loads a background without alpha
func (s *Synthesizer) LoadBackground(path string) (*imagebuf.Image, error) {
	return imagebuf.Load(path, 3)
}

// AugmentTemplate applies one random augmentation and trims templates that
// carry alpha. Points are returned in the coordinates of the new image.
func (s *Synthesizer) AugmentTemplate(tpl *imagebuf.Image, points []types.Point) (*imagebuf.Image, []types.Point, error) {
	img, pts, err := s.engine.Augment(tpl, points)
	if err != nil {
		return nil, nil, fmt.Errorf("augmentation failed: %w", err)
	}
	if !img.HasAlpha() {
		return img, pts, nil
	}
	img, pts, err = trim.Trim(img, pts)
	if err != nil {
		return nil, nil, fmt.Errorf("trim failed: %w", err)
	}
	return img, pts, nil
}

// Insert pastes tpl at a random position on bg without augmenting it
func (s *Synthesizer) Insert(bg, tpl *imagebuf.Image, points []types.Point) (Sample, error) {
	img, pl, err := s.compositor.Place(bg, tpl, points)
	if err != nil {
		return Sample{}, fmt.Errorf("placement failed: %w", err)
	}
	return Sample{Image: img, Box: pl.Box, Points: pl.Points, Visible: pl.Visible}, nil
}

// Generate augments tpl and pastes the result at a random position on bg
func (s *Synthesizer) Generate(bg, tpl *imagebuf.Image, points []types.Point) (Sample, error) {
	aug, pts, err := s.AugmentTemplate(tpl, points)
	if err != nil {
		return Sample{}, err
	}
	return s.Insert(bg, aug, pts)
}

// Commit stores a sample in ds and returns its index
func (s *Synthesizer) Commit(ds *dataset.Indexer, sample Sample, label string) (int, error) {
	return ds.Commit(sample.Image, sample.Box, label)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
