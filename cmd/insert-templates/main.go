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
	var bg, template, detDataset, clsDataset, ext, sep, configPath string
	var outOfImg, minVisible float64
	var workers int
	var seed int64
	var debug, verbose bool

	flag.StringVar(&bg, "bg", "", "directory with background images")
	flag.StringVar(&template, "template", "", "directory with augmented templates and data.json")
	flag.StringVar(&detDataset, "det_dataset", "", "detection dataset root")
	flag.StringVar(&clsDataset, "cls_dataset", "", "classification dataset root")

	flag.Float64Var(&outOfImg, "out_of_img", 0, "share of a template allowed outside the background (0..1)")
	flag.Float64Var(&minVisible, "min_visible", 0, "skip detection samples less visible than this (0..1)")
	flag.StringVar(&ext, "ext", "", "sample image format: jpg|png|webp")
	flag.StringVar(&sep, "sep", "", "text between box and label in ground-truth files")
	flag.StringVar(&configPath, "config", "", "JSON config file")
	flag.IntVar(&workers, "workers", 1, "templates processed in parallel")
	flag.Int64Var(&seed, "seed", 0, "random seed, 0 = time based")
	flag.BoolVar(&debug, "debug", false, "write box overlays to <dataset>/debug")
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -bg dir -template dir -det_dataset dir -cls_dataset dir [options]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	cli.Require(flag.CommandLine, "bg", "template", "det_dataset", "cls_dataset")
	cli.SetupLogging(verbose)

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out_of_img":
			cfg.Placement.OutOfImage = outOfImg
		case "min_visible":
			cfg.Placement.MinVisible = minVisible
		case "ext":
			cfg.Dataset.ImageFormat = ext
		case "sep":
			cfg.Dataset.LabelSeparator = sep
		case "workers":
			cfg.Pipeline.Workers = workers
		case "seed":
			cfg.Pipeline.Seed = seed
		case "debug":
			cfg.Pipeline.Debug = debug
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := cli.Context()
	defer stop()

	report, err := pipeline.InsertTemplates(ctx, cfg.InsertOptions(bg, template, detDataset, clsDataset))
	cli.LogReport(report)
	if err != nil {
		log.Fatalf("Template insertion failed: %v", err)
	}
}
