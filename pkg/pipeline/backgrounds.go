package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/menta2k/template-synth/internal/utils"
	"github.com/menta2k/template-synth/pkg/background"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/types"
)

// BackgroundOptions configures GenerateBackgrounds.
type BackgroundOptions struct {
	SourceDir string
	DestDir   string
	// Amount is the total number of crops, spread evenly over the sources.
	Amount int
	Width  int
	Height int

	Background background.Config
	// Format is the output format: jpg (default), png or webp.
	Format  string
	Quality int
	Workers int
}

func (o BackgroundOptions) format() string {
	if o.Format == "" {
		return "jpg"
	}
	return strings.ToLower(strings.TrimPrefix(o.Format, "."))
}

func (o BackgroundOptions) validate() error {
	switch {
	case o.SourceDir == "" || o.DestDir == "":
		return fmt.Errorf("%w: source and destination directories are required", types.ErrInvalidConfig)
	case o.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", types.ErrInvalidConfig)
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: crop size must be positive", types.ErrInvalidConfig)
	}
	switch o.format() {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("%w: unsupported output format %q", types.ErrInvalidConfig, o.Format)
	}
	return o.Background.Validate()
}

// GenerateBackgrounds cuts Amount random Width x Height crops out of the
// images in SourceDir. Every source gives Amount/len(sources) crops and the
// first Amount%len(sources) sources give one more. Output files are numbered
// after the files already in DestDir.
func GenerateBackgrounds(ctx context.Context, opts BackgroundOptions) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !utils.DirExists(opts.SourceDir) {
		return nil, fmt.Errorf("%w: background directory %s not found", types.ErrInvalidConfig, opts.SourceDir)
	}
	sources, err := utils.ListImageFiles(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("listing backgrounds failed: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", types.ErrInvalidConfig, opts.SourceDir)
	}
	if err := utils.EnsureDir(opts.DestDir); err != nil {
		return nil, err
	}
	existing, err := utils.CountFiles(opts.DestDir)
	if err != nil {
		return nil, err
	}
	cropper, err := background.NewWithConfig(opts.Background)
	if err != nil {
		return nil, err
	}

	per, extra := opts.Amount/len(sources), opts.Amount%len(sources)
	b := newBatch(ctx, "backgrounds")
	p := newPool(opts.Workers)
	next := existing + 1
	for i, src := range sources {
		count := per
		if i < extra {
			count++
		}
		if count == 0 {
			continue
		}
		src, first := src, next
		next += count
		if !p.Go(b.ctx, func() {
			cropSource(b, cropper, opts, src, first, count)
		}) {
			break
		}
	}
	p.Wait()
	return b.finish(ctx)
}

// cropSource is one unit of work: count crops of one source image.
func cropSource(b *batch, cropper *background.Cropper, opts BackgroundOptions, src string, first, count int) {
	img, err := imagebuf.Load(src, 3)
	if err == nil {
		img, err = cropper.Prepare(img)
	}
	if err != nil {
		b.failed(count, err, "source", src)
		return
	}

	save := imagebuf.SaveOptions{Format: opts.format(), Quality: opts.Quality}
	for j := 0; j < count; j++ {
		if b.ctx.Err() != nil {
			return
		}
		crop, rect, err := cropper.Crop(img, opts.Width, opts.Height)
		if err != nil {
			// every further crop of this source would fail the same way
			b.failed(count-j, err, "source", src)
			return
		}
		dest := utils.NumberedFilename(opts.DestDir, first+j, opts.format())
		if err := imagebuf.SaveExclusive(crop, dest, save); err != nil {
			b.failed(1, err, "source", src, "file", dest)
			continue
		}
		logging.Logger().Debug("background cropped", "source", filepath.Base(src), "file", filepath.Base(dest), "rect", rect.String())
		b.processed(1)
	}
}
