package augment

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/types"
)

// createMarkedImage creates an opaque gray image with a red block of the given
// radius around marker.
func createMarkedImage(t *testing.T, width, height int, marker types.Point, radius, channels int) *imagebuf.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{100, 100, 100, 255}
			if abs(x-marker.X) <= radius && abs(y-marker.Y) <= radius {
				c = color.NRGBA{250, 10, 10, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	im, err := imagebuf.FromImage(img, channels)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	return im
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"inverted rotate", func(c *Config) { c.Rotate = Range{Min: 10, Max: -10} }},
		{"zero scale", func(c *Config) { c.Scale = Range{Min: 0, Max: 1} }},
		{"shear too large", func(c *Config) { c.Shear = Range{Min: -90, Max: 0} }},
		{"gamma probability", func(c *Config) { c.GammaProbability = 1.5 }},
		{"blur probability", func(c *Config) { c.BlurProbability = -0.1 }},
		{"blur kernel", func(c *Config) { c.BlurKernel = IntRange{Min: 3, Max: 9} }},
		{"non-positive gamma", func(c *Config) { c.Gamma = Range{Min: 0, Max: 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if _, err := NewWithConfig(cfg); err == nil {
				t.Error("NewWithConfig accepted an invalid config")
			}
		})
	}
}

func TestIdentityKeepsImageAndPoints(t *testing.T) {
	marker := types.Pt(12, 8)
	im := createMarkedImage(t, 40, 20, marker, 2, 4)

	out, pts, err := Apply(im, []types.Point{marker, types.Pt(0, 0), types.Pt(39, 19)}, Identity())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Width() != 40 || out.Height() != 20 {
		t.Errorf("identity changed size to %dx%d", out.Width(), out.Height())
	}
	want := []types.Point{marker, types.Pt(0, 0), types.Pt(39, 19)}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d moved from %+v to %+v", i, want[i], pts[i])
		}
	}
}

func TestKeypointFollowsContent(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"rotate 90", Params{Rotate: 90, ScaleX: 1, ScaleY: 1}},
		{"rotate -30 sheared", Params{Rotate: -30, ScaleX: 1, ScaleY: 1, Shear: 20}},
		{"scaled", Params{Rotate: 15, ScaleX: 0.7, ScaleY: 0.7}},
		{"non-uniform", Params{ScaleX: 0.6, ScaleY: 1.3}},
	}

	marker := types.Pt(14, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := createMarkedImage(t, 48, 32, marker, 4, 4)
			out, pts, err := Apply(im, []types.Point{marker}, tt.p)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			p := pts[0]
			if p.X < 0 || p.Y < 0 || p.X >= out.Width() || p.Y >= out.Height() {
				t.Fatalf("keypoint %+v outside %dx%d output", p, out.Width(), out.Height())
			}
			c := out.NRGBA.NRGBAAt(p.X, p.Y)
			if c.R < 200 || c.G > 60 || c.B > 60 {
				t.Errorf("keypoint %+v does not sit on the marker, pixel is %v", p, c)
			}
		})
	}
}

func TestWarpFillsTransparentForAlpha(t *testing.T) {
	im := createMarkedImage(t, 40, 20, types.Pt(20, 10), 2, 4)
	out, _, err := Apply(im, nil, Params{Rotate: 45, ScaleX: 1, ScaleY: 1})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Channels != 4 {
		t.Fatalf("expected 4 channels, got %d", out.Channels)
	}
	if a := out.AlphaAt(0, 0); a != 0 {
		t.Errorf("expected transparent corner after rotation, got alpha %d", a)
	}
	if a := out.AlphaAt(out.Width()/2, out.Height()/2); a != 255 {
		t.Errorf("expected opaque center, got alpha %d", a)
	}
}

func TestWarpFillsBlackWithoutAlpha(t *testing.T) {
	im := createMarkedImage(t, 40, 20, types.Pt(20, 10), 2, 3)
	out, _, err := Apply(im, nil, Params{Rotate: 45, ScaleX: 1, ScaleY: 1, Gamma: 1.5, BlurKernel: 3})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Channels != 3 {
		t.Fatalf("expected 3 channels, got %d", out.Channels)
	}
	c := out.NRGBA.NRGBAAt(0, 0)
	if c != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("expected opaque black corner, got %v", c)
	}
}

func TestPhotometricKeepsPointsAndAlpha(t *testing.T) {
	im := createMarkedImage(t, 30, 30, types.Pt(15, 15), 3, 4)
	im.NRGBA.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 0})
	pts := []types.Point{types.Pt(3, 4), types.Pt(15, 15)}

	out, got, err := Apply(im, pts, Params{ScaleX: 1, ScaleY: 1, Gamma: 0.5, BlurKernel: 5, BlurAngle: 30})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for i := range pts {
		if got[i] != pts[i] {
			t.Errorf("photometric stage moved %+v to %+v", pts[i], got[i])
		}
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			if out.AlphaAt(x, y) != im.AlphaAt(x, y) {
				t.Fatalf("alpha changed at (%d,%d): %d -> %d", x, y, im.AlphaAt(x, y), out.AlphaAt(x, y))
			}
		}
	}
}

func TestGammaContrast(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	im, _ := imagebuf.FromImage(img, 3)

	out, _, err := Apply(im, nil, Params{ScaleX: 1, ScaleY: 1, Gamma: 2})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// 255 * (128/255)^2 = 64.25
	if v := int(out.NRGBA.NRGBAAt(1, 1).R); abs(v-64) > 1 {
		t.Errorf("gamma 2 on 128 gave %d, want about 64", v)
	}
}

func TestRejectsChannelCount(t *testing.T) {
	im := createMarkedImage(t, 8, 8, types.Pt(4, 4), 1, 4)
	im.Channels = 2
	if _, _, err := New().Augment(im, nil); !errors.Is(err, types.ErrChannelCount) {
		t.Errorf("expected ErrChannelCount, got %v", err)
	}
}

func TestSeedIsReproducible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	a, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	b, _ := NewWithConfig(cfg)

	for i := 0; i < 10; i++ {
		pa, pb := a.Sample(), b.Sample()
		if pa != pb {
			t.Fatalf("draw %d differs: %+v vs %+v", i, pa, pb)
		}
	}
}

func TestSampleWithinRanges(t *testing.T) {
	e := New()
	cfg := e.Config()
	for i := 0; i < 200; i++ {
		p := e.Sample()
		if p.Rotate < cfg.Rotate.Min || p.Rotate > cfg.Rotate.Max {
			t.Errorf("rotate %f outside range", p.Rotate)
		}
		if p.ScaleX != p.ScaleY {
			t.Errorf("uniform scale drew %f x %f", p.ScaleX, p.ScaleY)
		}
		if p.Gamma != 0 && (p.Gamma < cfg.Gamma.Min || p.Gamma > cfg.Gamma.Max) {
			t.Errorf("gamma %f outside range", p.Gamma)
		}
		if p.BlurKernel != 0 && (p.BlurKernel < 3 || p.BlurKernel > 5) {
			t.Errorf("blur kernel %d outside range", p.BlurKernel)
		}
	}
}

func TestMotionKernelHasCenter(t *testing.T) {
	for _, k := range []int{2, 3, 4, 5} {
		kernel := motionKernel(k, 37)
		if kernel[12] != 1 {
			t.Errorf("k=%d: kernel must include the center tap", k)
		}
	}
}

func BenchmarkAugment(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	im, _ := imagebuf.FromImage(img, 4)
	e := New()
	pts := []types.Point{{X: 10, Y: 10}, {X: 190, Y: 190}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := e.Augment(im, pts); err != nil {
			b.Fatal(err)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
