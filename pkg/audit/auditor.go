// Package audit spot-checks generated samples with a vision model: the model
// is shown a crop around the ground-truth box and must find the object and
// name its class.
package audit

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/template-synth/pkg/client"
	"github.com/menta2k/template-synth/pkg/dataset"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for the object location. %s is replaced by the expected class.
const DefaultPrompt = `You are checking a synthetic training image for an object detector.
The image may contain one traffic sign of class %q pasted onto a road scene.

Return JSON only:
{
  "present": true,
  "label": "string",
  "confidence": 0.0,
  "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
  "description": "short neutral sentence"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box must tightly include the sign.
- Use the expected class name as label if the sign matches it, otherwise name what you see.
- If there is no sign, return {"present": false, "label": "none", "confidence": 0.0, "box": {"x": 0, "y": 0, "w": 0, "h": 0}, "description": "no sign"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls auditing.
type Config struct {
	Model string `json:"model"`
	// Margin is the context added around the box on each side, as a fraction of the box size.
	Margin float64 `json:"margin"`
	// MinIoU is the overlap the model box needs with the ground truth to pass.
	MinIoU float64 `json:"min_iou"`
	// MaxDimension bounds the longest side of the crop sent to the model.
	MaxDimension int `json:"max_dimension"`
	Quality      int `json:"quality"`
}

// DefaultConfig returns the audit settings used by the CLI.
func DefaultConfig() Config {
	return Config{Margin: 0.5, MinIoU: 0.3, MaxDimension: 512, Quality: 85}
}

// Validate checks the audit settings.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: audit model is required", types.ErrInvalidConfig)
	}
	if c.Margin < 0 {
		return fmt.Errorf("%w: margin must not be negative", types.ErrInvalidConfig)
	}
	if c.MinIoU < 0 || c.MinIoU > 1 {
		return fmt.Errorf("%w: min_iou must be between 0 and 1", types.ErrInvalidConfig)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 1 and 100", types.ErrInvalidConfig)
	}
	return nil
}

// Verdict is the audit outcome for one sample.
type Verdict struct {
	Index      int              `json:"index,omitempty"`
	Label      string           `json:"label"`
	Detection  *types.Detection `json:"detection"`
	Expected   types.Box        `json:"expected"`
	IoU        float64          `json:"iou"`
	LabelMatch bool             `json:"label_match"`
	Passed     bool             `json:"passed"`
}

// Auditor checks samples with a vision client.
type Auditor struct {
	client client.VisionClient
	config Config
}

// NewAuditor creates an auditor.
func NewAuditor(c client.VisionClient, cfg Config) (*Auditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Auditor{client: c, config: cfg}, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (a *Auditor) TestVision(ctx context.Context, img image.Image) (string, error) {
	b64, err := imagebuf.Base64JPEG(img, a.config.MaxDimension, a.config.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return a.client.SimpleQuery(ctx, a.config.Model, SimpleTestPrompt, b64)
}

// AuditSample checks one sample image against its box and label.
func (a *Auditor) AuditSample(ctx context.Context, img *imagebuf.Image, box types.BoundingBox, label string) (*Verdict, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	region := contextRegion(box, a.config.Margin, img.Width(), img.Height())
	if region.Empty() {
		return nil, fmt.Errorf("%w: box %+v lies outside the image", types.ErrDegenerateGeometry, box)
	}
	crop, err := img.Crop(region)
	if err != nil {
		return nil, err
	}

	b64, err := imagebuf.Base64JPEG(crop.NRGBA, a.config.MaxDimension, a.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	det, err := a.client.Detect(ctx, a.config.Model, fmt.Sprintf(DefaultPrompt, label), b64)
	if err != nil {
		return nil, err
	}

	local := types.BoundingBox{X: box.X - region.Min.X, Y: box.Y - region.Min.Y, Width: box.Width, Height: box.Height}
	expected := local.Normalize(region.Dx(), region.Dy())

	v := &Verdict{
		Label:     label,
		Detection: det,
		Expected:  expected,
	}
	if det.Present {
		v.IoU = det.Box.IoU(expected)
		v.LabelMatch = sameLabel(det.Label, label)
	}
	v.Passed = det.Present && v.LabelMatch && v.IoU >= a.config.MinIoU

	logging.Logger().Debug("sample audited", "label", label, "model_label", det.Label, "iou", v.IoU, "passed", v.Passed)
	return v, nil
}

// AuditIndex loads sample n from ds and audits it.
func (a *Auditor) AuditIndex(ctx context.Context, ds *dataset.Indexer, n int) (*Verdict, error) {
	box, label, err := ds.ReadGroundTruth(n)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", n, err)
	}
	img, err := ds.ReadImage(n)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", n, err)
	}
	v, err := a.AuditSample(ctx, img, box, label)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", n, err)
	}
	v.Index = n
	return v, nil
}

// contextRegion grows box by margin on every side and clips it to the image.
func contextRegion(box types.BoundingBox, margin float64, w, h int) image.Rectangle {
	mx := int(float64(box.Width) * margin)
	my := int(float64(box.Height) * margin)
	r := image.Rect(box.X-mx, box.Y-my, box.X+box.Width+mx, box.Y+box.Height+my)
	return r.Intersect(image.Rect(0, 0, w, h))
}

// sameLabel compares class names loosely: case, separators and a "sign"
// prefix are ignored.
func sameLabel(got, want string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
		s = strings.TrimPrefix(s, "sign ")
		return strings.Join(strings.Fields(s), " ")
	}
	g, w := norm(got), norm(want)
	return g != "" && (g == w || strings.Contains(g, w) || strings.Contains(w, g))
}
