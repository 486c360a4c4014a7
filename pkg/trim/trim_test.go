package trim

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// createTestTemplate builds a transparent w x h canvas with opaque pixels at
// the given points.
func createTestTemplate(t *testing.T, w, h int, opaque ...types.Point) *imagebuf.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for _, p := range opaque {
		img.SetNRGBA(p.X, p.Y, color.NRGBA{255, 255, 255, 255})
	}
	im, err := imagebuf.FromImage(img, 4)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	return im
}

func TestTrimRemapsPoints(t *testing.T) {
	// 10x10 with row 0, row 9 and column 0 fully transparent.
	var opaque []types.Point
	for y := 1; y < 9; y++ {
		for x := 1; x < 10; x++ {
			opaque = append(opaque, types.Pt(x, y))
		}
	}
	im := createTestTemplate(t, 10, 10, opaque...)

	out, pts, err := Trim(im, []types.Point{types.Pt(5, 5)})
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if out.Width() != 9 || out.Height() != 8 {
		t.Errorf("expected 9x8 after trim, got %dx%d", out.Width(), out.Height())
	}
	if pts[0] != types.Pt(4, 4) {
		t.Errorf("point mapped to %+v, want (4,4)", pts[0])
	}
}

func TestTrimInteriorLines(t *testing.T) {
	// Two opaque pixels separated by transparent rows and columns.
	im := createTestTemplate(t, 6, 6, types.Pt(1, 1), types.Pt(4, 4))

	rows, cols := EmptyLines(im)
	wantRows := []int{0, 2, 3, 5}
	if len(rows) != len(wantRows) {
		t.Fatalf("empty rows = %v, want %v", rows, wantRows)
	}
	for i := range wantRows {
		if rows[i] != wantRows[i] {
			t.Errorf("empty rows = %v, want %v", rows, wantRows)
		}
	}
	if len(cols) != 4 {
		t.Errorf("empty cols = %v, want 4 entries", cols)
	}

	out, pts, err := Trim(im, []types.Point{types.Pt(4, 4)})
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if out.Width() != 2 || out.Height() != 2 {
		t.Errorf("expected 2x2, got %dx%d", out.Width(), out.Height())
	}
	if pts[0] != types.Pt(1, 1) {
		t.Errorf("point mapped to %+v, want (1,1)", pts[0])
	}
	if out.AlphaAt(1, 1) != 255 || out.AlphaAt(0, 1) != 0 {
		t.Error("pixel data not carried over correctly")
	}
}

func TestTrimIdempotent(t *testing.T) {
	im := createTestTemplate(t, 8, 8, types.Pt(2, 3), types.Pt(5, 6))
	pts := []types.Point{types.Pt(5, 6)}

	once, p1, err := Trim(im, pts)
	if err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	twice, p2, err := Trim(once, p1)
	if err != nil {
		t.Fatalf("second Trim failed: %v", err)
	}
	if once.Width() != twice.Width() || once.Height() != twice.Height() {
		t.Errorf("second trim changed size %dx%d -> %dx%d", once.Width(), once.Height(), twice.Width(), twice.Height())
	}
	if p1[0] != p2[0] {
		t.Errorf("second trim moved point %+v -> %+v", p1[0], p2[0])
	}
}

func TestTrimRequiresAlpha(t *testing.T) {
	im := createTestTemplate(t, 4, 4, types.Pt(1, 1))
	rgb, _ := imagebuf.FromImage(im.NRGBA, 3)
	if _, _, err := Trim(rgb, nil); !errors.Is(err, types.ErrChannelCount) {
		t.Errorf("expected ErrChannelCount, got %v", err)
	}
}

func TestTrimFullyTransparent(t *testing.T) {
	im := createTestTemplate(t, 4, 4)
	if _, _, err := Trim(im, nil); !errors.Is(err, types.ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
}
