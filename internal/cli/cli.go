// Package cli holds the flag, config and logging setup shared by the cmd tools.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/menta2k/template-synth/internal/config"
	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/pipeline"
)

// LoadConfig reads the config file at path, or returns the defaults when path is empty.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

// SetupLogging installs a text logger on stderr. verbose enables debug output.
func SetupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// MissingFlags returns the names of the flags in names that were not set on
// the command line.
func MissingFlags(fs *flag.FlagSet, names ...string) []string {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var missing []string
	for _, name := range names {
		if !set[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Require prints usage and exits with status 2 unless every named flag was set.
func Require(fs *flag.FlagSet, names ...string) {
	missing := MissingFlags(fs, names...)
	if len(missing) == 0 {
		return
	}
	for _, name := range missing {
		fmt.Fprintf(fs.Output(), "missing required flag: -%s\n", name)
	}
	fs.Usage()
	os.Exit(2)
}

// Context returns a context cancelled on SIGINT or SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// LogReport prints the outcome of a batch run.
func LogReport(r *pipeline.Report) {
	if r == nil {
		return
	}
	log.Printf("%s run %s: %d written, %d failed, %d skipped in %s",
		r.Stage, r.RunID, r.Processed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
}
