package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/template-synth/internal/cli"
	"github.com/menta2k/template-synth/pkg/audit"
	"github.com/menta2k/template-synth/pkg/client"
	"github.com/menta2k/template-synth/pkg/dataset"
	"github.com/menta2k/template-synth/pkg/llamacpp"
	"github.com/menta2k/template-synth/pkg/ollama"
)

func main() {
	var root, model, backend, url, ext, out, configPath string
	var samples int
	var minIoU float64
	var seed int64
	var testVision, verbose bool

	flag.StringVar(&root, "dataset", "", "dataset root to audit")
	flag.StringVar(&model, "model", "", "vision model name")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.IntVar(&samples, "samples", 0, "number of samples to check")
	flag.Float64Var(&minIoU, "min_iou", 0, "overlap needed to pass (0..1)")
	flag.StringVar(&ext, "ext", "", "sample image format of the dataset: jpg|png|webp")
	flag.StringVar(&out, "out", "", "write verdicts as JSON to this file")
	flag.StringVar(&configPath, "config", "", "JSON config file")
	flag.Int64Var(&seed, "seed", 0, "random seed for sample selection, 0 = time based")
	flag.BoolVar(&testVision, "test", false, "ask the model to describe the first sample before auditing")
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -dataset dir [-model name] [-backend ollama|llamacpp] [-url server_url] [options]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	cli.Require(flag.CommandLine, "dataset")
	cli.SetupLogging(verbose)

	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Audit.Model = model
		case "backend":
			cfg.Audit.Backend = backend
		case "url":
			cfg.Audit.Host = url
		case "samples":
			cfg.Audit.Samples = samples
		case "min_iou":
			cfg.Audit.MinIoU = minIoU
		case "ext":
			cfg.Dataset.ImageFormat = ext
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Create appropriate client based on backend
	var visionClient client.VisionClient
	host := cfg.Audit.Host
	switch cfg.Audit.Backend {
	case "ollama":
		if host == "" {
			host = "http://localhost:11434"
		}
		visionClient, err = ollama.NewClient(host)
		if err != nil {
			log.Fatalf("Failed to create Ollama client: %v", err)
		}
	case "llamacpp":
		if host == "" {
			host = "http://localhost:8080"
		}
		visionClient, err = llamacpp.NewClient(host)
		if err != nil {
			log.Fatalf("Failed to create llama.cpp client: %v", err)
		}
	}

	auditor, err := audit.NewAuditor(visionClient, cfg.Audit.Config)
	if err != nil {
		log.Fatalf("Invalid audit config: %v", err)
	}
	ds, err := dataset.Open(root, cfg.DatasetOptions()...)
	if err != nil {
		log.Fatalf("Failed to open dataset: %v", err)
	}
	total := ds.Current()
	if total == 0 {
		log.Fatalf("Dataset %s is empty", root)
	}

	ctx, stop := cli.Context()
	defer stop()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	indices := pick(rand.New(rand.NewSource(seed)), total, cfg.Audit.Samples)

	if testVision {
		img, err := ds.ReadImage(indices[0])
		if err != nil {
			log.Fatal(err)
		}
		answer, err := auditor.TestVision(ctx, img.NRGBA)
		if err != nil {
			log.Fatalf("Vision test failed: %v", err)
		}
		log.Printf("sample %d: %s", indices[0], answer)
	}

	verdicts := run(ctx, auditor, ds, indices)

	if out != "" {
		js, _ := json.MarshalIndent(verdicts, "", "  ")
		if err := os.WriteFile(out, js, 0o644); err != nil {
			log.Fatalf("Failed to write verdicts: %v", err)
		}
	}
	if ctx.Err() != nil {
		log.Fatal("Audit interrupted")
	}
}

// run audits the given indices and logs a summary.
func run(ctx context.Context, auditor *audit.Auditor, ds *dataset.Indexer, indices []int) []*audit.Verdict {
	var verdicts []*audit.Verdict
	passed, failed := 0, 0
	for _, n := range indices {
		if ctx.Err() != nil {
			break
		}
		v, err := auditor.AuditIndex(ctx, ds, n)
		if err != nil {
			log.Printf("audit failed: %v", err)
			failed++
			continue
		}
		verdicts = append(verdicts, v)
		if v.Passed {
			passed++
		} else {
			log.Printf("sample %d: label %q, model saw %q (iou %.2f)", n, v.Label, v.Detection.Label, v.IoU)
		}
	}
	log.Printf("audited %d samples: %d passed, %d rejected, %d errors",
		len(verdicts)+failed, passed, len(verdicts)-passed, failed)
	return verdicts
}

// pick draws up to k distinct indices from 1..n.
func pick(rng *rand.Rand, n, k int) []int {
	if k <= 0 || k > n {
		k = n
	}
	perm := rng.Perm(n)[:k]
	for i := range perm {
		perm[i]++
	}
	return perm
}
