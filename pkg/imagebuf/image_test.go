package imagebuf

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/menta2k/template-synth/pkg/types"
)

// createTestImage creates a template-like image: an opaque square on a transparent canvas.
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{200, 30, 30, 255})
		}
	}
	return img
}

func TestFromImageChannels(t *testing.T) {
	src := createTestImage(20, 10)

	rgba, err := FromImage(src, 4)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if rgba.AlphaAt(0, 0) != 0 {
		t.Errorf("expected transparent corner, got alpha %d", rgba.AlphaAt(0, 0))
	}

	rgb, err := FromImage(src, 3)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	if rgb.AlphaAt(0, 0) != 255 {
		t.Errorf("3-channel image should be opaque, got alpha %d", rgb.AlphaAt(0, 0))
	}
	if rgb.Width() != 20 || rgb.Height() != 10 {
		t.Errorf("expected 20x10, got %dx%d", rgb.Width(), rgb.Height())
	}
}

func TestFromImageRejectsChannels(t *testing.T) {
	for _, ch := range []int{0, 1, 2, 5} {
		if _, err := FromImage(createTestImage(4, 4), ch); !errors.Is(err, types.ErrChannelCount) {
			t.Errorf("channels=%d: expected ErrChannelCount, got %v", ch, err)
		}
	}
}

func TestFromImageEmpty(t *testing.T) {
	if _, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 4); !errors.Is(err, types.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestSplitMergeAlpha(t *testing.T) {
	im, _ := FromImage(createTestImage(8, 8), 4)

	colorImg, alpha := im.SplitAlpha()
	if colorImg.Channels != 3 {
		t.Fatalf("expected 3-channel color image, got %d", colorImg.Channels)
	}
	if colorImg.AlphaAt(0, 0) != 255 {
		t.Error("color image should be opaque after split")
	}

	merged, err := MergeAlpha(colorImg, alpha)
	if err != nil {
		t.Fatalf("MergeAlpha failed: %v", err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if merged.AlphaAt(x, y) != im.AlphaAt(x, y) {
				t.Fatalf("alpha mismatch at (%d,%d): %d vs %d", x, y, merged.AlphaAt(x, y), im.AlphaAt(x, y))
			}
		}
	}
}

func TestSplitAlphaWithoutAlpha(t *testing.T) {
	im, _ := FromImage(createTestImage(8, 8), 3)
	colorImg, alpha := im.SplitAlpha()
	if alpha != nil {
		t.Error("expected nil alpha plane for a 3-channel image")
	}
	if colorImg != im {
		t.Error("expected the same image back")
	}
}

func TestFitWithin(t *testing.T) {
	im, _ := FromImage(createTestImage(200, 100), 4)
	center := []types.Point{{X: 100, Y: 50}}

	resized, pts := im.FitWithin(center, 100, 100)
	if resized.Width() != 100 || resized.Height() != 50 {
		t.Fatalf("expected 100x50, got %dx%d", resized.Width(), resized.Height())
	}
	if pts[0].X != 50 || pts[0].Y != 25 {
		t.Errorf("center mapped to %+v, want (50,25)", pts[0])
	}
}

func TestCrop(t *testing.T) {
	im, _ := FromImage(createTestImage(40, 40), 3)

	cropped, err := im.Crop(image.Rect(10, 10, 30, 20))
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if cropped.Width() != 20 || cropped.Height() != 10 {
		t.Errorf("expected 20x10, got %dx%d", cropped.Width(), cropped.Height())
	}

	if _, err := im.Crop(image.Rect(30, 30, 50, 50)); err == nil {
		t.Error("expected error for crop outside the image")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	im, _ := FromImage(createTestImage(16, 12), 4)

	path := filepath.Join(dir, "tpl.png")
	if err := Save(im, path, SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path, 4)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Width() != 16 || loaded.Height() != 12 {
		t.Errorf("expected 16x12, got %dx%d", loaded.Width(), loaded.Height())
	}
	if loaded.AlphaAt(0, 0) != 0 || loaded.AlphaAt(8, 6) != 255 {
		t.Error("alpha channel did not survive the PNG round trip")
	}
}

func TestSaveExclusive(t *testing.T) {
	dir := t.TempDir()
	im, _ := FromImage(createTestImage(8, 8), 3)
	path := filepath.Join(dir, "1.jpg")

	if err := SaveExclusive(im, path, SaveOptions{Quality: 90}); err != nil {
		t.Fatalf("SaveExclusive failed: %v", err)
	}
	if err := SaveExclusive(im, path, SaveOptions{Quality: 90}); !errors.Is(err, types.ErrIndexCollision) {
		t.Errorf("expected ErrIndexCollision on second write, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png"), 4); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBase64JPEG(t *testing.T) {
	s, err := Base64JPEG(createTestImage(300, 100), 150, 80)
	if err != nil {
		t.Fatalf("Base64JPEG failed: %v", err)
	}
	if s == "" {
		t.Error("expected non-empty encoding")
	}
}
