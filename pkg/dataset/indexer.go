// Package dataset stores generated samples as numbered image / ground-truth
// pairs under a dataset root:
//
//	<root>/images/<n>.<ext>
//	<root>/gt/<n>.txt
//
// Numbering starts at 1 and continues from the number of files already in
// images/ when the root is opened. A root with gaps in its numbering will
// collide with an existing sample on the next open; the collision fails the
// commit and nothing is overwritten.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/menta2k/template-synth/internal/utils"
	"github.com/menta2k/template-synth/pkg/geometry"
	"github.com/menta2k/template-synth/pkg/imagebuf"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/types"
)

const (
	imagesDir = "images"
	gtDir     = "gt"
)

// Option configures an Indexer.
type Option func(*Indexer)

// WithImageFormat sets the stored image format: jpg (default), png or webp.
func WithImageFormat(ext string) Option {
	return func(d *Indexer) { d.format = strings.ToLower(strings.TrimPrefix(ext, ".")) }
}

// WithQuality sets the JPEG/WebP quality.
func WithQuality(q int) Option {
	return func(d *Indexer) { d.quality = q }
}

// WithLabelSeparator sets the text written between the box and the label in
// ground-truth files. The default is a single space.
func WithLabelSeparator(sep string) Option {
	return func(d *Indexer) { d.separator = sep }
}

// Indexer owns one dataset root and hands out sample indices.
// It is safe for concurrent use.
type Indexer struct {
	root      string
	format    string
	quality   int
	separator string

	mu    sync.Mutex
	index int
}

// Open prepares root for writing and counts the samples already stored.
// The directory is scanned once; later commits never re-scan.
func Open(root string, opts ...Option) (*Indexer, error) {
	d := &Indexer{
		root:      root,
		format:    "jpg",
		quality:   95,
		separator: " ",
	}
	for _, opt := range opts {
		opt(d)
	}
	switch d.format {
	case "jpg", "jpeg", "png", "webp":
	default:
		return nil, fmt.Errorf("%w: unsupported image format %q", types.ErrInvalidConfig, d.format)
	}
	if d.quality < 1 || d.quality > 100 {
		return nil, fmt.Errorf("%w: quality must be between 1 and 100", types.ErrInvalidConfig)
	}

	for _, dir := range []string{d.ImagesDir(), d.GroundTruthDir()} {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	n, err := utils.CountFiles(d.ImagesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", d.ImagesDir(), err)
	}
	d.index = n

	logging.Logger().Debug("dataset opened", "root", root, "existing", n)
	return d, nil
}

// Root returns the dataset root.
func (d *Indexer) Root() string { return d.root }

// ImagesDir returns the image store directory.
func (d *Indexer) ImagesDir() string { return filepath.Join(d.root, imagesDir) }

// GroundTruthDir returns the ground-truth store directory.
func (d *Indexer) GroundTruthDir() string { return filepath.Join(d.root, gtDir) }

// ImagePath returns the image path for index n.
func (d *Indexer) ImagePath(n int) string {
	return utils.NumberedFilename(d.ImagesDir(), n, d.format)
}

// GroundTruthPath returns the ground-truth path for index n.
func (d *Indexer) GroundTruthPath(n int) string {
	return utils.NumberedFilename(d.GroundTruthDir(), n, "txt")
}

// Current returns the last index handed out, or the number of pre-existing
// samples if nothing was committed yet.
func (d *Indexer) Current() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

// Reserve returns the next free index. A reserved index is never handed out again,
// even if nothing gets written under it.
func (d *Indexer) Reserve() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index++
	return d.index
}

// Commit stores img and its ground truth under a freshly reserved index and
// returns that index. The index is consumed before writing, so a failed write
// leaves a gap rather than a reused number. Existing files are never overwritten,
// and an image is only kept together with its ground truth.
func (d *Indexer) Commit(img *imagebuf.Image, box types.BoundingBox, label string) (int, error) {
	if err := img.Validate(); err != nil {
		return 0, fmt.Errorf("invalid sample image: %w", err)
	}
	if !box.Valid() {
		return 0, fmt.Errorf("%w: bounding box %+v", types.ErrDegenerateGeometry, box)
	}
	if label == "" || strings.ContainsAny(label, "\r\n") {
		return 0, fmt.Errorf("%w: label %q", types.ErrInvalidConfig, label)
	}

	n := d.Reserve()

	if err := imagebuf.SaveExclusive(img, d.ImagePath(n), imagebuf.SaveOptions{Format: d.format, Quality: d.quality}); err != nil {
		return n, fmt.Errorf("failed to write sample %d: %w", n, err)
	}
	if err := writeExclusive(d.GroundTruthPath(n), FormatGroundTruth(box, label, d.separator)); err != nil {
		os.Remove(d.ImagePath(n))
		return n, fmt.Errorf("failed to write ground truth %d: %w", n, err)
	}

	logging.Logger().Debug("sample committed", "root", d.root, "index", n, "label", label, "box", box)
	return n, nil
}

// CommitCorners is Commit for a box given as its top-left (x0, y0) and
// bottom-right (x1, y1) corners. Misordered corners are rejected.
func (d *Indexer) CommitCorners(img *imagebuf.Image, x0, y0, x1, y1 int, label string) (int, error) {
	box, err := geometry.BoxFromCorners(x0, y0, x1, y1)
	if err != nil {
		return 0, err
	}
	return d.Commit(img, box, label)
}

// ReadGroundTruth loads the ground truth stored under index n.
func (d *Indexer) ReadGroundTruth(n int) (types.BoundingBox, string, error) {
	data, err := os.ReadFile(d.GroundTruthPath(n))
	if err != nil {
		return types.BoundingBox{}, "", err
	}
	return ParseGroundTruth(string(data))
}

// ReadImage loads the image stored under index n.
func (d *Indexer) ReadImage(n int) (*imagebuf.Image, error) {
	return imagebuf.Load(d.ImagePath(n), 3)
}

func writeExclusive(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", types.ErrIndexCollision, path)
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
