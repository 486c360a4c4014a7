package geometry

import (
	"fmt"
	"math/rand"

	"github.com/menta2k/template-synth/pkg/types"
)

// ValidateOverflow checks that the allowed overflow fraction lies in [0,1].
func ValidateOverflow(outOfImg float64) error {
	if outOfImg < 0 || outOfImg > 1 {
		return fmt.Errorf("%w: out_of_img %v outside [0,1]", types.ErrInvalidConfig, outOfImg)
	}
	return nil
}

// ClampAnchor pulls a placement anchor left/up so that at most
// floor(size*outOfImg) pixels of a tplW x tplH template extend past the
// right/bottom edge of a bgW x bgH background. The shift is never positive.
func ClampAnchor(anchor types.Point, tplW, tplH, bgW, bgH int, outOfImg float64) (types.Point, error) {
	if err := ValidateOverflow(outOfImg); err != nil {
		return anchor, err
	}

	overflowX := max(0, anchor.X+tplW-bgW)
	overflowY := max(0, anchor.Y+tplH-bgH)

	allowedX, allowedY := 0, 0
	if outOfImg != 0 {
		allowedX = int(float64(tplW) * outOfImg)
		allowedY = int(float64(tplH) * outOfImg)
	}

	return types.Point{
		X: anchor.X + min(0, allowedX-overflowX),
		Y: anchor.Y + min(0, allowedY-overflowY),
	}, nil
}

// RandomAnchor draws a point inside a w x h image. x is uniform over the
// width; y lands in the top half with probability top and in the bottom half
// otherwise.
func RandomAnchor(rng *rand.Rand, w, h int, top float64) types.Point {
	half := h / 2
	var y int
	if rng.Float64() < top && half > 0 {
		y = rng.Intn(half)
	} else {
		y = half + rng.Intn(max(h-half, 1))
	}
	return types.Point{X: rng.Intn(max(w, 1)), Y: y}
}
