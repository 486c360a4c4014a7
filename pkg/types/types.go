package types

import (
	"encoding/json"
	"fmt"
)

// Point is a pixel coordinate tied to the image it was measured on.
// It serializes as a two element array, [x, y].
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y]. Float coordinates are truncated.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point must be a [x, y] array: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(raw))
	}
	p.X, p.Y = int(raw[0]), int(raw[1])
	return nil
}

// ClonePoints returns a copy of pts so callers can mutate freely.
func ClonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// TemplateRecord describes one labeled template image in a catalog.
type TemplateRecord struct {
	Filename string  `json:"filename"`
	Type     string  `json:"type"`
	Points   []Point `json:"points"`
}

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the box has non-negative extent.
func (b BoundingBox) Valid() bool {
	return b.Width >= 0 && b.Height >= 0
}

// Area returns the box area.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Box is a bounding box normalized to [0,1] image coordinates.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Normalize converts the pixel box into a Box relative to a w x h image.
func (b BoundingBox) Normalize(w, h int) Box {
	if w <= 0 || h <= 0 {
		return Box{}
	}
	fw, fh := float64(w), float64(h)
	return Box{
		X: float64(b.X) / fw,
		Y: float64(b.Y) / fh,
		W: float64(b.Width) / fw,
		H: float64(b.Height) / fh,
	}
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	x0, y0 := max(b.X, o.X), max(b.Y, o.Y)
	x1, y1 := min(b.X+b.W, o.X+o.W), min(b.Y+b.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := b.W*b.H + o.W*o.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection is a vision model's answer about one sample crop. Box is
// normalized to the crop that was sent.
type Detection struct {
	Present     bool    `json:"present"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Box         Box     `json:"box"`
	Description string  `json:"description"`
	// Fallback is set when the model reply could not be parsed.
	Fallback bool `json:"-"`
}
