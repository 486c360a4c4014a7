// Package imagebuf provides the single image value used across the pipeline:
// an NRGBA pixel buffer tagged with its channel count (3 = color, 4 = color+alpha).
package imagebuf

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/template-synth/pkg/types"
)

// Image is a pixel buffer with a known channel count. 3-channel images keep
// every alpha value at 255.
type Image struct {
	NRGBA    *image.NRGBA
	Channels int
}

// New returns a w x h image filled with transparent black (4 channels) or
// opaque black (3 channels).
func New(w, h, channels int) (*Image, error) {
	if err := checkChannels(channels); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", types.ErrEmptyImage, w, h)
	}
	fill := color.NRGBA{}
	if channels == 3 {
		fill.A = 255
	}
	return &Image{NRGBA: imaging.New(w, h, fill), Channels: channels}, nil
}

// FromImage converts any image.Image into an Image with the requested channel count.
// Converting to 3 channels drops alpha.
func FromImage(img image.Image, channels int) (*Image, error) {
	if err := checkChannels(channels); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, types.ErrEmptyImage
	}
	nrgba := imaging.Clone(img)
	if channels == 3 {
		opaque(nrgba)
	}
	return &Image{NRGBA: nrgba, Channels: channels}, nil
}

func checkChannels(channels int) error {
	if channels != 3 && channels != 4 {
		return fmt.Errorf("%w: %d", types.ErrChannelCount, channels)
	}
	return nil
}

// Width returns the image width.
func (im *Image) Width() int { return im.NRGBA.Bounds().Dx() }

// Height returns the image height.
func (im *Image) Height() int { return im.NRGBA.Bounds().Dy() }

// HasAlpha reports whether the alpha channel carries information.
func (im *Image) HasAlpha() bool { return im.Channels == 4 }

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	return &Image{NRGBA: imaging.Clone(im.NRGBA), Channels: im.Channels}
}

// Validate checks the channel count and that the buffer is non-empty.
func (im *Image) Validate() error {
	if im == nil || im.NRGBA == nil || im.NRGBA.Bounds().Empty() {
		return types.ErrEmptyImage
	}
	return checkChannels(im.Channels)
}

// AlphaAt returns the alpha value at (x, y) in image-local coordinates.
func (im *Image) AlphaAt(x, y int) uint8 {
	b := im.NRGBA.Bounds()
	return im.NRGBA.Pix[im.NRGBA.PixOffset(b.Min.X+x, b.Min.Y+y)+3]
}

// SplitAlpha separates a 4-channel image into an opaque color image and its
// alpha plane. 3-channel images return themselves and a nil plane.
func (im *Image) SplitAlpha() (*Image, *image.Alpha) {
	if !im.HasAlpha() {
		return im, nil
	}
	b := im.NRGBA.Bounds()
	w, h := b.Dx(), b.Dy()
	colorImg := imaging.Clone(im.NRGBA)
	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := colorImg.Pix[y*colorImg.Stride : y*colorImg.Stride+w*4]
		for x := 0; x < w; x++ {
			alpha.Pix[y*alpha.Stride+x] = row[x*4+3]
			row[x*4+3] = 255
		}
	}
	return &Image{NRGBA: colorImg, Channels: 3}, alpha
}

// MergeAlpha recombines a color image with an alpha plane of the same size.
func MergeAlpha(colorImg *Image, alpha *image.Alpha) (*Image, error) {
	if alpha == nil {
		return colorImg, nil
	}
	if colorImg.Channels != 3 {
		return nil, fmt.Errorf("%w: merging alpha into a %d-channel image", types.ErrChannelCount, colorImg.Channels)
	}
	src := colorImg.NRGBA
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if ab := alpha.Bounds(); ab.Dx() != w || ab.Dy() != h {
		return nil, fmt.Errorf("alpha plane %dx%d does not match image %dx%d", ab.Dx(), ab.Dy(), w, h)
	}
	out := imaging.Clone(src)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = alpha.Pix[y*alpha.Stride+x]
		}
	}
	return &Image{NRGBA: out, Channels: 4}, nil
}

func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
}
