package imagebuf

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/types"
)

// Resize scales the image to exactly w x h with a cubic filter.
func (im *Image) Resize(w, h int) *Image {
	if w == im.Width() && h == im.Height() {
		return im.Clone()
	}
	out := imaging.Resize(im.NRGBA, w, h, imaging.CatmullRom)
	if im.Channels == 3 {
		opaque(out)
	}
	return &Image{NRGBA: out, Channels: im.Channels}
}

// FitWithin shrinks the image to fit maxW x maxH, keeping its aspect ratio,
// and maps points onto the resized image.
func (im *Image) FitWithin(points []types.Point, maxW, maxH int) (*Image, []types.Point) {
	w, h := im.Width(), im.Height()
	newW, newH := geometry.FitSize(w, h, maxW, maxH)
	if newW == w && newH == h {
		return im.Clone(), types.ClonePoints(points)
	}
	return im.Resize(newW, newH), geometry.ScalePoints(points, w, h, newW, newH)
}

// Crop returns the rect region of the image. The rect must lie inside it.
func (im *Image) Crop(rect image.Rectangle) (*Image, error) {
	bounds := image.Rect(0, 0, im.Width(), im.Height())
	if rect.Empty() || !rect.In(bounds) {
		return nil, fmt.Errorf("crop %v outside image %v", rect, bounds)
	}
	return &Image{NRGBA: imaging.Crop(im.NRGBA, rect), Channels: im.Channels}, nil
}

// CropBottom removes n rows from the bottom of the image.
func (im *Image) CropBottom(n int) (*Image, error) {
	if n <= 0 {
		return im, nil
	}
	if n >= im.Height() {
		return nil, fmt.Errorf("%w: cutting %d rows from a %d row image", types.ErrEmptyImage, n, im.Height())
	}
	return im.Crop(image.Rect(0, 0, im.Width(), im.Height()-n))
}
