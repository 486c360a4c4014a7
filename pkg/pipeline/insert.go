package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/menta2k/template-synth/internal/utils"
	"github.com/menta2k/template-synth/pkg/background"
	"github.com/menta2k/template-synth/pkg/catalog"
	"github.com/menta2k/template-synth/pkg/compositor"
	"github.com/menta2k/template-synth/pkg/dataset"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/overlay"
	"github.com/menta2k/template-synth/pkg/types"
)

// DebugDir is the directory under a dataset root that receives overlay images.
const DebugDir = "debug"

// InsertOptions configures InsertTemplates.
type InsertOptions struct {
	BackgroundDir string
	// TemplateDir holds the augmented templates and their data.json.
	TemplateDir        string
	DetectionRoot      string
	ClassificationRoot string

	// Placement positions templates on full backgrounds for detection samples.
	Placement compositor.Config
	// Crop positions the classification crop inside the background.
	Crop background.Config
	// ClassificationMargin is the border around the template in a
	// classification sample, as a fraction of the template size.
	ClassificationMargin float64
	// MinVisible skips detection samples whose template is less visible than this.
	MinVisible float64

	ImageFormat    string
	Quality        int
	LabelSeparator *string
	// Debug writes box and keypoint overlays to <root>/debug/<n>.png.
	Debug bool
	// Seed fixes the background shuffle. 0 seeds from the clock.
	Seed    int64
	Workers int
}

// DefaultInsertOptions returns the usual placement. Detection templates stay
// fully inside the image with an even chance of landing in the top half;
// classification crops come mostly from the bottom half.
func DefaultInsertOptions() InsertOptions {
	return InsertOptions{
		Placement:            compositor.DefaultConfig(),
		Crop:                 background.DefaultConfig(),
		ClassificationMargin: 0.08,
	}
}

func (o InsertOptions) validate() error {
	switch {
	case o.BackgroundDir == "" || o.TemplateDir == "":
		return fmt.Errorf("%w: background and template directories are required", types.ErrInvalidConfig)
	case o.DetectionRoot == "" || o.ClassificationRoot == "":
		return fmt.Errorf("%w: detection and classification dataset roots are required", types.ErrInvalidConfig)
	case o.ClassificationMargin < 0:
		return fmt.Errorf("%w: classification margin must not be negative", types.ErrInvalidConfig)
	case o.MinVisible < 0 || o.MinVisible > 1:
		return fmt.Errorf("%w: min_visible must be between 0 and 1", types.ErrInvalidConfig)
	}
	if err := o.Placement.Validate(); err != nil {
		return err
	}
	return o.Crop.Validate()
}

func (o InsertOptions) datasetOptions() []dataset.Option {
	var opts []dataset.Option
	if o.ImageFormat != "" {
		opts = append(opts, dataset.WithImageFormat(o.ImageFormat))
	}
	if o.Quality > 0 {
		opts = append(opts, dataset.WithQuality(o.Quality))
	}
	if o.LabelSeparator != nil {
		opts = append(opts, dataset.WithLabelSeparator(*o.LabelSeparator))
	}
	return opts
}

// inserter holds the shared state of one InsertTemplates run.
type inserter struct {
	opts           InsertOptions
	compositor     *compositor.Compositor
	cropper        *background.Cropper
	detection      *dataset.Indexer
	classification *dataset.Indexer
}

// InsertTemplates pastes every augmented template onto its own background and
// commits two samples per template: the template at a random position on the
// full background (detection) and the template near the corner of a crop just
// larger than itself (classification). Backgrounds are shuffled and handed out
// one per template; with fewer backgrounds than templates they are reused.
func InsertTemplates(ctx context.Context, opts InsertOptions) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !utils.FileExists(catalog.Path(opts.TemplateDir)) {
		return nil, fmt.Errorf("%w: %s has no %s, augment the templates first", types.ErrInvalidConfig, opts.TemplateDir, catalog.FileName)
	}
	if !utils.DirExists(opts.BackgroundDir) {
		return nil, fmt.Errorf("%w: background directory %s not found", types.ErrInvalidConfig, opts.BackgroundDir)
	}
	records, err := catalog.Load(catalog.Path(opts.TemplateDir))
	if err != nil {
		return nil, err
	}
	backgrounds, err := utils.ListImageFiles(opts.BackgroundDir)
	if err != nil {
		return nil, fmt.Errorf("listing backgrounds failed: %w", err)
	}
	if len(backgrounds) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", types.ErrInvalidConfig, opts.BackgroundDir)
	}
	if len(backgrounds) < len(records) {
		logging.Logger().Warn("fewer backgrounds than templates, backgrounds will be reused",
			"backgrounds", len(backgrounds), "templates", len(records))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(backgrounds), func(i, j int) { backgrounds[i], backgrounds[j] = backgrounds[j], backgrounds[i] })

	in := &inserter{opts: opts}
	placement := opts.Placement
	crop := opts.Crop
	if opts.Seed != 0 {
		placement.Seed = rng.Int63()
		crop.Seed = rng.Int63()
	}
	if in.compositor, err = compositor.NewWithConfig(placement); err != nil {
		return nil, err
	}
	if in.cropper, err = background.NewWithConfig(crop); err != nil {
		return nil, err
	}
	if in.detection, err = dataset.Open(opts.DetectionRoot, opts.datasetOptions()...); err != nil {
		return nil, err
	}
	if in.classification, err = dataset.Open(opts.ClassificationRoot, opts.datasetOptions()...); err != nil {
		return nil, err
	}
	if opts.Debug {
		for _, root := range []string{opts.DetectionRoot, opts.ClassificationRoot} {
			if err := utils.EnsureDir(filepath.Join(root, DebugDir)); err != nil {
				return nil, err
			}
		}
	}

	b := newBatch(ctx, "insert")
	p := newPool(opts.Workers)
	for i, rec := range records {
		rec, bg := rec, backgrounds[i%len(backgrounds)]
		if !p.Go(b.ctx, func() {
			in.insert(b, rec, bg)
		}) {
			break
		}
	}
	p.Wait()
	return b.finish(ctx)
}

// insert is one unit of work: one template on one background, two samples.
func (in *inserter) insert(b *batch, rec types.TemplateRecord, bgPath string) {
	tpl, err := imagebuf.Load(filepath.Join(in.opts.TemplateDir, filepath.FromSlash(rec.Filename)), 4)
	if err != nil {
		b.failed(2, err, "template", rec.Filename)
		return
	}
	bg, err := imagebuf.Load(bgPath, 3)
	if err != nil {
		b.failed(2, err, "template", rec.Filename, "background", bgPath)
		return
	}

	if err := in.detectionSample(b, bg, tpl, rec); err != nil {
		b.failed(1, err, "template", rec.Filename, "dataset", "detection")
	}
	if err := in.classificationSample(b, bg, tpl, rec); err != nil {
		b.failed(1, err, "template", rec.Filename, "dataset", "classification")
	}
}

func (in *inserter) detectionSample(b *batch, bg, tpl *imagebuf.Image, rec types.TemplateRecord) error {
	img, pl, err := in.compositor.Place(bg, tpl, rec.Points)
	if err != nil {
		return err
	}
	if pl.Visible < in.opts.MinVisible {
		b.skipped(1, "template mostly outside the background",
			"template", rec.Filename, "visible", pl.Visible)
		return nil
	}
	n, err := in.detection.CommitCorners(img, pl.Box.X, pl.Box.Y, pl.Box.X+pl.Box.Width, pl.Box.Y+pl.Box.Height, rec.Type)
	if err != nil {
		return err
	}
	b.processed(1)
	in.writeDebug(in.opts.DetectionRoot, n, img, pl, rec.Type)
	return nil
}

func (in *inserter) classificationSample(b *batch, bg, tpl *imagebuf.Image, rec types.TemplateRecord) error {
	tw, th := tpl.Width(), tpl.Height()
	offX := int(float64(tw) * in.opts.ClassificationMargin)
	offY := int(float64(th) * in.opts.ClassificationMargin)

	crop, _, err := in.cropper.Crop(bg, tw+offX+1, th+offY+1)
	if err != nil {
		return err
	}
	img, pl, err := compositor.Composite(crop, tpl, rec.Points, types.Pt(offX/2, offY/2), 0)
	if err != nil {
		return err
	}
	n, err := in.classification.Commit(img, pl.Box, rec.Type)
	if err != nil {
		return err
	}
	b.processed(1)
	in.writeDebug(in.opts.ClassificationRoot, n, img, pl, rec.Type)
	return nil
}

func (in *inserter) writeDebug(root string, n int, img *imagebuf.Image, pl compositor.Placement, label string) {
	if !in.opts.Debug {
		return
	}
	view := overlay.Draw(img, pl.Box, pl.Points, label, overlay.DefaultOptions())
	dest := utils.NumberedFilename(filepath.Join(root, DebugDir), n, "png")
	if err := imagebuf.Save(view, dest, imagebuf.SaveOptions{Format: "png"}); err != nil {
		logging.Logger().Warn("writing debug overlay failed", "file", dest, "error", err)
	}
}
