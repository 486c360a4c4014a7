// Package geometry holds the coordinate math that keeps label geometry in step
// with every pixel operation: size normalization, placement clamping,
// row/column deletion remapping and affine point transforms.
package geometry

import (
	"fmt"

	"github.com/menta2k/template-synth/pkg/types"
)

// FitSize returns the size of a w x h image shrunk to fit within maxW x maxH.
// Width is reduced first, then height, each step removing the overflow scaled
// by the original aspect ratio. Images already inside the limits are unchanged.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	ratio := float64(w) / float64(h)

	if maxW > 0 && w > maxW {
		dif := w - maxW
		h -= int(float64(dif) / ratio)
		w = maxW
	}
	if maxH > 0 && h > maxH {
		dif := h - maxH
		w -= int(float64(dif) * ratio)
		h = maxH
	}
	return max(w, 1), max(h, 1)
}

// ScalePoints maps points measured on an origW x origH image onto the same
// image resized to newW x newH. Coordinates are truncated.
func ScalePoints(points []types.Point, origW, origH, newW, newH int) []types.Point {
	out := make([]types.Point, len(points))
	if origW <= 0 || origH <= 0 {
		copy(out, points)
		return out
	}
	for i, p := range points {
		out[i] = types.Point{
			X: int(float64(p.X) / float64(origW) * float64(newW)),
			Y: int(float64(p.Y) / float64(origH) * float64(newH)),
		}
	}
	return out
}

// BoxFromCorners converts (x_start, y_start, x_end, y_end) into a BoundingBox.
// Mis-ordered corners produce ErrDegenerateGeometry.
func BoxFromCorners(x0, y0, x1, y1 int) (types.BoundingBox, error) {
	box := types.BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if !box.Valid() {
		return box, fmt.Errorf("%w: corners (%d,%d)-(%d,%d) give %dx%d box",
			types.ErrDegenerateGeometry, x0, y0, x1, y1, box.Width, box.Height)
	}
	return box, nil
}

// Bounds returns the tightest box containing all points.
func Bounds(points []types.Point) (types.BoundingBox, bool) {
	if len(points) == 0 {
		return types.BoundingBox{}, false
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return types.BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}
