// Package trim removes fully transparent rows and columns from templates and
// shifts keypoints to match.
package trim

import (
	"fmt"
	"image"

	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// EmptyLines returns the indices of rows and columns whose alpha is zero at
// every pixel. Interior lines are included.
func EmptyLines(img *imagebuf.Image) (rows, cols []int) {
	w, h := img.Width(), img.Height()
	colUsed := make([]bool, w)
	for y := 0; y < h; y++ {
		rowUsed := false
		for x := 0; x < w; x++ {
			if img.AlphaAt(x, y) != 0 {
				rowUsed = true
				colUsed[x] = true
			}
		}
		if !rowUsed {
			rows = append(rows, y)
		}
	}
	for x, used := range colUsed {
		if !used {
			cols = append(cols, x)
		}
	}
	return rows, cols
}

// Trim deletes every fully transparent row and column of img and remaps
// points accordingly. An image without such lines comes back unchanged.
func Trim(img *imagebuf.Image, points []types.Point) (*imagebuf.Image, []types.Point, error) {
	if err := img.Validate(); err != nil {
		return nil, nil, err
	}
	if !img.HasAlpha() {
		return nil, nil, fmt.Errorf("%w: trimming needs an alpha channel", types.ErrChannelCount)
	}

	rows, cols := EmptyLines(img)
	if len(rows) == 0 && len(cols) == 0 {
		return img.Clone(), types.ClonePoints(points), nil
	}
	w, h := img.Width(), img.Height()
	if len(rows) == h || len(cols) == w {
		return nil, nil, fmt.Errorf("%w: template is fully transparent", types.ErrDegenerateGeometry)
	}

	keepRows := keep(h, rows)
	keepCols := keep(w, cols)

	src := img.NRGBA
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, len(keepCols), len(keepRows)))
	for ny, y := range keepRows {
		srcRow := src.PixOffset(b.Min.X, b.Min.Y+y)
		dstRow := ny * dst.Stride
		for nx, x := range keepCols {
			copy(dst.Pix[dstRow+nx*4:dstRow+nx*4+4], src.Pix[srcRow+x*4:srcRow+x*4+4])
		}
	}

	out := &imagebuf.Image{NRGBA: dst, Channels: img.Channels}
	return out, geometry.RemapDeleted(points, rows, cols), nil
}

// keep lists the indices in [0, n) that are not in deleted. deleted is ascending.
func keep(n int, deleted []int) []int {
	out := make([]int, 0, n-len(deleted))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(deleted) && deleted[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}
