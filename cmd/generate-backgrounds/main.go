package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/menta2k/template-synth/internal/cli"
	"github.com/menta2k/template-synth/pkg/pipeline"
)

func main() {
	var src, dest, ext, configPath string
	var amount, width, height, bottomCut, quality, workers int
	var seed int64
	var verbose bool

	flag.StringVar(&src, "src", "", "directory with road scene photos")
	flag.StringVar(&dest, "dest", "", "output directory for background crops")
	flag.IntVar(&amount, "amount", 0, "total number of crops")
	flag.IntVar(&width, "width", 0, "crop width (px)")
	flag.IntVar(&height, "height", 0, "crop height (px)")

	flag.IntVar(&bottomCut, "bottom_cut", 0, "rows removed from the bottom of every photo (default from config: 1000)")
	flag.StringVar(&ext, "ext", "", "output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP quality (1-100)")
	flag.StringVar(&configPath, "config", "", "JSON config file")
	flag.IntVar(&workers, "workers", 1, "photos processed in parallel")
	flag.Int64Var(&seed, "seed", 0, "random seed, 0 = time based")
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -src dir -dest dir -amount n -width px -height px [options]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	cli.Require(flag.CommandLine, "src", "dest", "amount", "width", "height")
	cli.SetupLogging(verbose)

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bottom_cut":
			cfg.Background.BottomCut = bottomCut
		case "ext":
			cfg.Dataset.ImageFormat = ext
		case "quality":
			cfg.Dataset.Quality = quality
		case "workers":
			cfg.Pipeline.Workers = workers
		case "seed":
			cfg.Background.Seed = seed
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := cli.Context()
	defer stop()

	report, err := pipeline.GenerateBackgrounds(ctx, cfg.BackgroundOptions(src, dest, amount, width, height))
	cli.LogReport(report)
	if err != nil {
		log.Fatalf("Background generation failed: %v", err)
	}
}
