package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/template-synth/pkg/audit"
	"github.com/menta2k/template-synth/pkg/augment"
	"github.com/menta2k/template-synth/pkg/background"
	"github.com/menta2k/template-synth/pkg/compositor"
	"github.com/menta2k/template-synth/pkg/dataset"
	"github.com/menta2k/template-synth/pkg/pipeline"
	"github.com/menta2k/template-synth/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Augment    augment.Config    `json:"augment"`
	Placement  PlacementConfig   `json:"placement"`
	Dataset    DatasetConfig     `json:"dataset"`
	Background background.Config `json:"background"`
	Pipeline   PipelineConfig    `json:"pipeline"`
	Audit      AuditConfig       `json:"audit"`
}

// PlacementConfig holds configuration for template insertion
type PlacementConfig struct {
	compositor.Config
	// CropTopProbability is the chance a classification crop starts in the top half.
	CropTopProbability   float64 `json:"crop_top_probability"`
	ClassificationMargin float64 `json:"classification_margin"`
	MinVisible           float64 `json:"min_visible"`
}

// DatasetConfig holds configuration for stored samples
type DatasetConfig struct {
	ImageFormat string `json:"image_format"`
	Quality     int    `json:"quality"`
	// LabelSeparator goes between the box and the label in ground-truth files.
	LabelSeparator string `json:"label_separator"`
}

// PipelineConfig holds configuration shared by the batch tools
type PipelineConfig struct {
	Workers int `json:"workers"`
	// Seed fixes the template shuffle of the insert stage. 0 seeds from the clock.
	Seed  int64 `json:"seed"`
	Debug bool  `json:"debug"`
	// TemplateWidth and TemplateHeight bound templates before augmentation.
	TemplateWidth  int `json:"template_width"`
	TemplateHeight int `json:"template_height"`
}

// AuditConfig holds configuration for vision model checks
type AuditConfig struct {
	audit.Config
	// Backend is ollama or llamacpp.
	Backend string `json:"backend"`
	// Host is the server URL. Empty picks the backend's local default.
	Host string `json:"host"`
	// Samples is how many committed samples are checked per run.
	Samples int `json:"samples"`
}

// Default returns a configuration with default values
func Default() *Config {
	bg := background.DefaultConfig()
	bg.BottomCut = 1000
	return &Config{
		Augment: augment.DefaultConfig(),
		Placement: PlacementConfig{
			Config:               compositor.DefaultConfig(),
			CropTopProbability:   background.DefaultConfig().TopProbability,
			ClassificationMargin: 0.08,
		},
		Dataset: DatasetConfig{
			ImageFormat:    "jpg",
			Quality:        95,
			LabelSeparator: " ",
		},
		Background: bg,
		Pipeline: PipelineConfig{
			Workers:        1,
			TemplateWidth:  200,
			TemplateHeight: 200,
		},
		Audit: AuditConfig{
			Config:  audit.DefaultConfig(),
			Backend: "ollama",
			Samples: 20,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. The audit section is only
// checked by the audit tool, since it needs a model name.
func (c *Config) Validate() error {
	if err := c.Augment.Validate(); err != nil {
		return fmt.Errorf("augment: %w", err)
	}

	if err := c.Placement.Config.Validate(); err != nil {
		return fmt.Errorf("placement: %w", err)
	}

	if c.Placement.CropTopProbability < 0 || c.Placement.CropTopProbability > 1 {
		return fmt.Errorf("%w: placement.crop_top_probability must be between 0 and 1", types.ErrInvalidConfig)
	}

	if c.Placement.ClassificationMargin < 0 {
		return fmt.Errorf("%w: placement.classification_margin must not be negative", types.ErrInvalidConfig)
	}

	if c.Placement.MinVisible < 0 || c.Placement.MinVisible > 1 {
		return fmt.Errorf("%w: placement.min_visible must be between 0 and 1", types.ErrInvalidConfig)
	}

	switch strings.ToLower(c.Dataset.ImageFormat) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("%w: dataset.image_format %q is not supported", types.ErrInvalidConfig, c.Dataset.ImageFormat)
	}

	if c.Dataset.Quality < 1 || c.Dataset.Quality > 100 {
		return fmt.Errorf("%w: dataset.quality must be between 1 and 100", types.ErrInvalidConfig)
	}

	if strings.ContainsAny(c.Dataset.LabelSeparator, "\r\n") {
		return fmt.Errorf("%w: dataset.label_separator must not contain line breaks", types.ErrInvalidConfig)
	}

	if err := c.Background.Validate(); err != nil {
		return fmt.Errorf("background: %w", err)
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be positive", types.ErrInvalidConfig)
	}

	if c.Pipeline.TemplateWidth < 1 || c.Pipeline.TemplateHeight < 1 {
		return fmt.Errorf("%w: pipeline template size must be positive", types.ErrInvalidConfig)
	}

	switch c.Audit.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("%w: audit.backend must be ollama or llamacpp", types.ErrInvalidConfig)
	}

	return nil
}

// DatasetOptions returns the indexer options for the dataset section.
func (c *Config) DatasetOptions() []dataset.Option {
	return []dataset.Option{
		dataset.WithImageFormat(c.Dataset.ImageFormat),
		dataset.WithQuality(c.Dataset.Quality),
		dataset.WithLabelSeparator(c.Dataset.LabelSeparator),
	}
}

// AugmentOptions builds the augment stage options.
func (c *Config) AugmentOptions(src, dest string, count int) pipeline.AugmentOptions {
	return pipeline.AugmentOptions{
		SourceDir: src,
		DestDir:   dest,
		Count:     count,
		MaxWidth:  c.Pipeline.TemplateWidth,
		MaxHeight: c.Pipeline.TemplateHeight,
		Augment:   c.Augment,
		Workers:   c.Pipeline.Workers,
	}
}

// BackgroundOptions builds the background stage options.
func (c *Config) BackgroundOptions(src, dest string, amount, width, height int) pipeline.BackgroundOptions {
	return pipeline.BackgroundOptions{
		SourceDir:  src,
		DestDir:    dest,
		Amount:     amount,
		Width:      width,
		Height:     height,
		Background: c.Background,
		Format:     c.Dataset.ImageFormat,
		Quality:    c.Dataset.Quality,
		Workers:    c.Pipeline.Workers,
	}
}

// InsertOptions builds the insert stage options.
func (c *Config) InsertOptions(bg, templates, detection, classification string) pipeline.InsertOptions {
	sep := c.Dataset.LabelSeparator
	crop := background.DefaultConfig()
	crop.TopProbability = c.Placement.CropTopProbability
	return pipeline.InsertOptions{
		BackgroundDir:        bg,
		TemplateDir:          templates,
		DetectionRoot:        detection,
		ClassificationRoot:   classification,
		Placement:            c.Placement.Config,
		Crop:                 crop,
		ClassificationMargin: c.Placement.ClassificationMargin,
		MinVisible:           c.Placement.MinVisible,
		ImageFormat:          c.Dataset.ImageFormat,
		Quality:              c.Dataset.Quality,
		LabelSeparator:       &sep,
		Debug:                c.Pipeline.Debug,
		Seed:                 c.Pipeline.Seed,
		Workers:              c.Pipeline.Workers,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "template-synth", "config.json")
}
