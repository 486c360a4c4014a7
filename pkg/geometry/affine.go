package geometry

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"

	"github.com/menta2k/template-synth/pkg/types"
)

// Affine is a 2D affine map stored as a 3x3 homogeneous matrix.
// [a b tx]
// [c d ty]
// [0 0 1 ]
type Affine struct {
	m *mat.Dense
}

func newAffine(a, b, tx, c, d, ty float64) Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		a, b, tx,
		c, d, ty,
		0, 0, 1,
	})}
}

// Identity returns the identity map.
func Identity() Affine {
	return newAffine(1, 0, 0, 0, 1, 0)
}

// Translation returns a translation by (tx, ty).
func Translation(tx, ty float64) Affine {
	return newAffine(1, 0, tx, 0, 1, ty)
}

// Rotation returns a rotation by the given angle in degrees. With y pointing
// down, positive angles rotate clockwise on screen.
func Rotation(degrees float64) Affine {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return newAffine(cos, -sin, 0, sin, cos, 0)
}

// Scaling returns a scale by (sx, sy).
func Scaling(sx, sy float64) Affine {
	return newAffine(sx, 0, 0, 0, sy, 0)
}

// ShearX returns a horizontal shear by the given angle in degrees.
func ShearX(degrees float64) Affine {
	return newAffine(1, math.Tan(degrees*math.Pi/180), 0, 0, 1, 0)
}

// Then returns the map that applies t first and next afterwards.
func (t Affine) Then(next Affine) Affine {
	var out mat.Dense
	out.Mul(next.m, t.m)
	return Affine{m: &out}
}

// Apply maps (x, y).
func (t Affine) Apply(x, y float64) (float64, float64) {
	m := t.m
	return m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2),
		m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2)
}

// Inverse returns the inverse map.
func (t Affine) Inverse() (Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		return Affine{}, fmt.Errorf("%w: affine map is not invertible: %v", types.ErrDegenerateGeometry, err)
	}
	return Affine{m: &inv}, nil
}

// Aff3 returns the map in the row-major layout used by x/image/draw.
func (t Affine) Aff3() f64.Aff3 {
	m := t.m
	return f64.Aff3{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
	}
}

// FitCanvas maps the rectangle [0,w]x[0,h] through t and returns a copy of t
// translated so the result starts at the origin, plus the output canvas size
// that contains it.
func (t Affine) FitCanvas(w, h int) (Affine, int, int) {
	fw, fh := float64(w), float64(h)
	corners := [4][2]float64{{0, 0}, {fw, 0}, {0, fh}, {fw, fh}}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := t.Apply(c[0], c[1])
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}

	outW := max(int(math.Ceil(maxX-minX-1e-9)), 1)
	outH := max(int(math.Ceil(maxY-minY-1e-9)), 1)
	return t.Then(Translation(-minX, -minY)), outW, outH
}

// ApplyPoints maps pixel points through t. A point is taken at its pixel
// center and floored back to a pixel index, which keeps the identity exact.
func (t Affine) ApplyPoints(points []types.Point) []types.Point {
	out := make([]types.Point, len(points))
	for i, p := range points {
		x, y := t.Apply(float64(p.X)+0.5, float64(p.Y)+0.5)
		out[i] = types.Point{X: int(math.Floor(x)), Y: int(math.Floor(y))}
	}
	return out
}
