// Package pipeline runs the three dataset generation stages as batches of
// independent units of work: template augmentation, background cropping and
// template insertion.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/menta2k/template-synth/internal/utils"
	"github.com/menta2k/template-synth/pkg/augment"
	"github.com/menta2k/template-synth/pkg/catalog"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/trim"
	"github.com/menta2k/template-synth/pkg/types"
)

// AugmentOptions configures AugmentTemplates.
type AugmentOptions struct {
	// SourceDir holds the template images named in the catalog.
	SourceDir string
	// Catalog is the template catalog. Empty means <SourceDir>/data.json.
	Catalog string
	// DestDir receives <type>/<n>.png and data.json.
	DestDir string
	// Count is the number of augmented copies per template.
	Count int
	// MaxWidth and MaxHeight bound the template size before augmentation.
	MaxWidth  int
	MaxHeight int

	Augment augment.Config
	Workers int
}

func (o AugmentOptions) validate() error {
	switch {
	case o.SourceDir == "" || o.DestDir == "":
		return fmt.Errorf("%w: source and destination directories are required", types.ErrInvalidConfig)
	case o.Count <= 0:
		return fmt.Errorf("%w: count must be positive", types.ErrInvalidConfig)
	case o.MaxWidth <= 0 || o.MaxHeight <= 0:
		return fmt.Errorf("%w: maximum template size must be positive", types.ErrInvalidConfig)
	}
	return o.Augment.Validate()
}

// AugmentTemplates writes Count augmented copies of every catalog template
// and the catalog describing them. Copies are numbered per type, so two
// templates of one type never overwrite each other.
func AugmentTemplates(ctx context.Context, opts AugmentOptions) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !utils.DirExists(opts.SourceDir) {
		return nil, fmt.Errorf("%w: template directory %s not found", types.ErrInvalidConfig, opts.SourceDir)
	}
	catalogPath := opts.Catalog
	if catalogPath == "" {
		catalogPath = catalog.Path(opts.SourceDir)
	}
	records, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(opts.DestDir); err != nil {
		return nil, err
	}
	engine, err := augment.NewWithConfig(opts.Augment)
	if err != nil {
		return nil, err
	}

	// Number the copies up front so the output does not depend on worker scheduling.
	firstNumber := make([]int, len(records))
	perType := map[string]int{}
	for i, r := range records {
		firstNumber[i] = perType[r.Type]*opts.Count + 1
		perType[r.Type]++
	}

	results := make([][]types.TemplateRecord, len(records))
	b := newBatch(ctx, "augment")
	p := newPool(opts.Workers)
	for i, rec := range records {
		i, rec := i, rec
		if !p.Go(b.ctx, func() {
			results[i] = augmentTemplate(b, engine, opts, rec, firstNumber[i])
		}) {
			break
		}
	}
	p.Wait()

	if b.ctx.Err() != nil {
		// a stopped run leaves no catalog, so insertion cannot pick up a partial set
		logging.Logger().Warn("augmentation stopped, catalog not written", "dest", opts.DestDir)
		return b.finish(ctx)
	}

	var out []types.TemplateRecord
	for _, r := range results {
		out = append(out, r...)
	}
	if err := catalog.Store(catalog.Path(opts.DestDir), out); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

// augmentTemplate is one unit of work: normalize one template and write its copies.
func augmentTemplate(b *batch, engine *augment.Engine, opts AugmentOptions, rec types.TemplateRecord, first int) []types.TemplateRecord {
	log := logging.Logger().With("template", rec.Filename, "type", rec.Type)

	src, err := imagebuf.Load(filepath.Join(opts.SourceDir, filepath.FromSlash(rec.Filename)), 4)
	if err != nil {
		b.failed(opts.Count, err, "template", rec.Filename)
		return nil
	}
	norm, points := src.FitWithin(rec.Points, opts.MaxWidth, opts.MaxHeight)

	typeDir := utils.SanitizeFilename(rec.Type)
	if err := utils.EnsureDir(filepath.Join(opts.DestDir, typeDir)); err != nil {
		b.failed(opts.Count, err, "template", rec.Filename)
		return nil
	}

	out := make([]types.TemplateRecord, 0, opts.Count)
	for j := 0; j < opts.Count; j++ {
		if b.ctx.Err() != nil {
			break
		}
		name := path.Join(typeDir, fmt.Sprintf("%d.png", first+j))

		img, pts, err := engine.Augment(norm, points)
		if err == nil && img.HasAlpha() {
			img, pts, err = trim.Trim(img, pts)
		}
		if err == nil {
			err = imagebuf.Save(img, filepath.Join(opts.DestDir, filepath.FromSlash(name)), imagebuf.SaveOptions{Format: "png"})
		}
		if err != nil {
			b.failed(1, err, "template", rec.Filename, "copy", j+1)
			continue
		}

		log.Debug("template augmented", "file", name, "size", fmt.Sprintf("%dx%d", img.Width(), img.Height()))
		out = append(out, types.TemplateRecord{Filename: name, Type: rec.Type, Points: pts})
		b.processed(1)
	}
	return out
}
