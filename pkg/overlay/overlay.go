// Package overlay renders debug views of generated samples: the ground-truth
// box and the keypoints, colored per class.
package overlay

import (
	"hash/fnv"
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// Options controls the rendering.
type Options struct {
	Stroke    int
	CrossSize int
}

// DefaultOptions returns the stroke and marker size used for debug output.
func DefaultOptions() Options {
	return Options{Stroke: 2, CrossSize: 4}
}

// LabelColor maps a class label to a stable, saturated color.
func LabelColor(label string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(label))
	hue := float64(h.Sum32()%360) + 0.5
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Draw returns a copy of img with box outlined and each point marked with a
// cross in the label color. Anything outside the image is clipped.
func Draw(img *imagebuf.Image, box types.BoundingBox, points []types.Point, label string, opts Options) *imagebuf.Image {
	out := img.Clone()
	nrgba := out.NRGBA
	c := LabelColor(label)

	drawBox(nrgba, box, c, max(opts.Stroke, 1))

	// Keypoints use the complementary color so they stay visible on the box.
	kc := complement(c)
	cross := max(opts.CrossSize, 1)
	for _, p := range points {
		drawHLine(nrgba, p.Y, p.X-cross, p.X+cross+1, kc)
		drawVLine(nrgba, p.X, p.Y-cross, p.Y+cross+1, kc)
	}
	return out
}

func complement(c color.NRGBA) color.NRGBA {
	col, _ := colorful.MakeColor(c)
	h, s, v := col.Hsv()
	r, g, b := colorful.Hsv(math.Mod(h+180, 360), s, v).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func drawBox(img *image.NRGBA, box types.BoundingBox, c color.NRGBA, stroke int) {
	x0, y0 := box.X, box.Y
	x1, y1 := box.X+max(box.Width, 1), box.Y+max(box.Height, 1)
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
