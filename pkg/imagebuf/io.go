package imagebuf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/template-synth/pkg/types"
)

// Load reads an image file and converts it to the requested channel count.
// Templates are loaded with 4 channels, backgrounds with 3.
func Load(path string, channels int) (*Image, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading image %s failed: %w", path, err)
	}
	out, err := FromImage(img, channels)
	if err != nil {
		return nil, fmt.Errorf("loading image %s failed: %w", path, err)
	}
	return out, nil
}

func decodeFile(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Fallback: explicit WebP decode
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format: %w", err)
	}
	return img, nil
}

// SaveOptions controls encoding.
type SaveOptions struct {
	// Format is jpg, png or webp. Empty means derive from the file extension.
	Format   string
	Quality  int
	Lossless bool
}

// Save writes the image to path, replacing any existing file.
func Save(im *Image, path string, opts SaveOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, im, formatFor(path, opts), opts); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s failed: %w", path, err)
	}
	return f.Close()
}

// SaveExclusive writes the image to a path that must not exist yet.
func SaveExclusive(im *Image, path string, opts SaveOptions) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", types.ErrIndexCollision, path)
		}
		return err
	}
	if err := Encode(f, im, formatFor(path, opts), opts); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding %s failed: %w", path, err)
	}
	return f.Close()
}

func formatFor(path string, opts SaveOptions) string {
	if opts.Format != "" {
		return strings.ToLower(opts.Format)
	}
	if i := strings.LastIndex(path, "."); i >= 0 {
		return strings.ToLower(path[i+1:])
	}
	return "png"
}

// Encode writes the image in the given format. 3-channel images are written
// without alpha where the format allows it.
func Encode(w io.Writer, im *Image, format string, opts SaveOptions) error {
	quality := opts.Quality
	if quality <= 0 {
		quality = 95
	}
	switch format {
	case "webp":
		return webp.Encode(w, im.NRGBA, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		return enc.Encode(w, im.NRGBA)
	case "jpg", "jpeg":
		return imaging.Encode(w, im.NRGBA, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Base64JPEG encodes img as a base64 JPEG, shrinking its long side to maxDim
// first when maxDim > 0.
func Base64JPEG(img image.Image, maxDim, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
