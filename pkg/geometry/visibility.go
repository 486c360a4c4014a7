package geometry

import (
	"math"
	"slices"
	"sort"

	clipper "github.com/ctessum/go.clipper"

	"github.com/menta2k/template-synth/pkg/types"
)

// VisibleFraction returns the share of the outline polygon's area that lies
// inside a bgW x bgH background. The outline is given in background
// coordinates. Outlines with fewer than 3 points or no area report 0.
func VisibleFraction(outline []types.Point, bgW, bgH int) float64 {
	if len(outline) < 3 || bgW <= 0 || bgH <= 0 {
		return 0
	}

	subject := toPath(outline)
	total := math.Abs(pathArea(subject))
	if total == 0 {
		return 0
	}

	frame := toPath([]types.Point{{X: 0, Y: 0}, {X: bgW, Y: 0}, {X: bgW, Y: bgH}, {X: 0, Y: bgH}})

	c := clipper.NewClipper(0)
	c.AddPath(subject, clipper.PtSubject, true)
	c.AddPath(frame, clipper.PtClip, true)
	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return 0
	}

	var inside float64
	for _, p := range solution {
		inside += math.Abs(pathArea(p))
	}
	return math.Min(inside/total, 1)
}

// RectOutline returns the corners of a box in clockwise order.
func RectOutline(box types.BoundingBox) []types.Point {
	x1, y1 := box.X+box.Width, box.Y+box.Height
	return []types.Point{{X: box.X, Y: box.Y}, {X: x1, Y: box.Y}, {X: x1, Y: y1}, {X: box.X, Y: y1}}
}

func toPath(points []types.Point) clipper.Path {
	path := make(clipper.Path, 0, len(points))
	for _, p := range points {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(p.X), Y: clipper.CInt(p.Y)})
	}
	return path
}

// pathArea is the signed shoelace area.
func pathArea(path clipper.Path) float64 {
	n := len(path)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a, b := path[i], path[(i+1)%n]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	return sum / 2
}

// ConvexHull returns the convex hull of points in counter-clockwise order
// (monotone chain). Fewer than 3 distinct points are returned as-is.
func ConvexHull(points []types.Point) []types.Point {
	pts := types.ClonePoints(points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b types.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	hull := make([]types.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
