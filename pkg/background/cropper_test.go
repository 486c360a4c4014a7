package background

import (
	"errors"
	"image"
	"testing"

	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// createTestImage creates a background whose red channel encodes x and green encodes y.
func createTestImage(t *testing.T, width, height int) *imagebuf.Image {
	t.Helper()
	im, err := imagebuf.New(width, height, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := im.NRGBA.PixOffset(x, y)
			im.NRGBA.Pix[off] = uint8(x)
			im.NRGBA.Pix[off+1] = uint8(y)
		}
	}
	return im
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.config.TopProbability != 0.25 {
		t.Errorf("Expected TopProbability 0.25 by default, got %f", c.config.TopProbability)
	}
}

func TestCropSizeAndContent(t *testing.T) {
	c, _ := NewWithConfig(Config{TopProbability: 0.25, Seed: 11})
	img := createTestImage(t, 120, 90)

	for i := 0; i < 50; i++ {
		out, rect, err := c.Crop(img, 40, 30)
		if err != nil {
			t.Fatalf("Crop failed: %v", err)
		}
		if out.Width() != 40 || out.Height() != 30 {
			t.Fatalf("crop is %dx%d, want 40x30", out.Width(), out.Height())
		}
		if !rect.In(image.Rect(0, 0, 120, 90)) {
			t.Fatalf("crop %v outside image", rect)
		}
		c0 := out.NRGBA.NRGBAAt(0, 0)
		if int(c0.R) != rect.Min.X || int(c0.G) != rect.Min.Y {
			t.Fatalf("crop content %v does not match rect %v", c0, rect)
		}
	}
}

func TestCropTallerThanHalf(t *testing.T) {
	// Only top-half corners can hold the crop; sampling must still finish.
	c, _ := NewWithConfig(Config{TopProbability: 0, Seed: 5})
	img := createTestImage(t, 50, 40)
	if _, _, err := c.Crop(img, 10, 35); err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
}

func TestCropTooLarge(t *testing.T) {
	c := New()
	img := createTestImage(t, 20, 20)
	if _, _, err := c.Crop(img, 30, 10); !errors.Is(err, types.ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
}

func TestPrepareBottomCut(t *testing.T) {
	c, _ := NewWithConfig(Config{BottomCut: 15})
	out, err := c.Prepare(createTestImage(t, 20, 40))
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if out.Height() != 25 {
		t.Errorf("height after cut = %d, want 25", out.Height())
	}

	if _, err := c.Prepare(createTestImage(t, 20, 10)); !errors.Is(err, types.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage when the cut removes everything, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if _, err := NewWithConfig(Config{TopProbability: 2}); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewWithConfig(Config{BottomCut: -1}); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
