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
	var src, dest, catalogPath, configPath string
	var count, maxW, maxH, workers int
	var seed int64
	var verbose bool

	flag.StringVar(&src, "src", "", "directory with template images and data.json")
	flag.StringVar(&dest, "dest", "", "output directory for augmented templates")
	flag.IntVar(&count, "count", 0, "augmented copies per template")
	flag.IntVar(&maxW, "max_w", 0, "maximum template width before augmentation (px)")
	flag.IntVar(&maxH, "max_h", 0, "maximum template height before augmentation (px)")

	flag.StringVar(&catalogPath, "catalog", "", "template catalog (default <src>/data.json)")
	flag.StringVar(&configPath, "config", "", "JSON config file")
	flag.IntVar(&workers, "workers", 1, "templates processed in parallel")
	flag.Int64Var(&seed, "seed", 0, "random seed, 0 = time based")
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -src dir -dest dir -count n -max_w px -max_h px [options]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	cli.Require(flag.CommandLine, "src", "dest", "count", "max_w", "max_h")
	cli.SetupLogging(verbose)

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Pipeline.Workers = workers
		case "seed":
			cfg.Augment.Seed = seed
		}
	})
	cfg.Pipeline.TemplateWidth, cfg.Pipeline.TemplateHeight = maxW, maxH
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	opts := cfg.AugmentOptions(src, dest, count)
	opts.Catalog = catalogPath

	ctx, stop := cli.Context()
	defer stop()

	report, err := pipeline.AugmentTemplates(ctx, opts)
	cli.LogReport(report)
	if err != nil {
		log.Fatalf("Augmentation failed: %v", err)
	}
}
