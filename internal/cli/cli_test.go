package cli

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestMissingFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("src", "", "")
	fs.String("dest", "", "")
	fs.Int("count", 0, "")

	if err := fs.Parse([]string{"-src", "templates", "-count", "0"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	missing := MissingFlags(fs, "src", "dest", "count")
	if !slices.Equal(missing, []string{"dest"}) {
		t.Errorf("MissingFlags = %v, want [dest]", missing)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dataset.ImageFormat != "jpg" {
		t.Errorf("expected defaults, got %+v", cfg.Dataset)
	}

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"dataset": {"image_format": "png"}}`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dataset.ImageFormat != "png" {
		t.Errorf("image format = %q, want png", cfg.Dataset.ImageFormat)
	}
}
