// Package main implements the splitter binary.
// It partitions a contact list into one file per surname initial,
// skipping records already present in the target partition.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/arkilian/splitter/internal/archive"
	"github.com/arkilian/splitter/internal/config"
	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/internal/pipeline"
)

var (
	version = "dev"
	commit  = "unknown"
)

// flags holds command line overrides; empty values leave config untouched.
type flags struct {
	configFile  string
	envFile     string
	input       string
	output      string
	workers     int
	dedup       string
	archive     bool
	restore     string
	showVersion bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "splitter: ", log.LstdFlags)

	fl, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if fl.showVersion {
		fmt.Fprintf(stdout, "splitter version %s (commit: %s)\n", version, commit)
		return 0
	}

	if err := loadEnvFile(fl.envFile); err != nil {
		logger.Printf("Failed to load %s: %v", fl.envFile, err)
		return 1
	}

	cfg, err := loadConfig(fl)
	if err != nil {
		logger.Printf("Failed to load configuration: %v", err)
		return 1
	}

	driver, err := pipeline.NewDriver(pipeline.Options{
		InputPath: cfg.Input,
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		Router:    cfg.RouterConfig(),
		Sink:      cfg.SinkOptions(),
		Logger:    logger,
	})
	if err != nil {
		logger.Printf("Failed to create pipeline: %v", err)
		return 1
	}

	if fl.restore != "" {
		return restore(ctx, cfg, driver, fl.restore, logger, stdout)
	}

	result, err := driver.Run(ctx)
	if err != nil {
		if splerrors.IsFatal(err) && splerrors.GetCategory(err) == splerrors.ErrCategoryInput {
			logger.Printf("Error: File does not exist: %s", cfg.Input)
		}
		logger.Printf("Run failed: %v", err)
		return 1
	}

	if cfg.Archive.Enabled {
		store, err := archive.OpenStorage(ctx, cfg.Archive.Storage)
		if err != nil {
			logger.Printf("Archive disabled: %v", err)
		} else {
			archiver := archive.NewArchiver(store, cfg.Archive.Prefix, cfg.Archive.Compress, logger)
			ar := archiver.Archive(ctx, result.RunID, result.Partitions)
			result.Errors = append(result.Errors, ar.Errors...)
		}
	}

	if result.Failed() {
		logger.Printf("Completed with %d errors: %v", len(result.Errors), result.ErrorsByCode())
	}
	fmt.Fprintln(stdout, "Processing complete. Check output files.")
	return 0
}

// restore replays the partitions archived by an earlier run through the
// pipeline, so they merge into the output directory without duplicates.
func restore(ctx context.Context, cfg *config.Config, driver *pipeline.Driver, runID string, logger *log.Logger, stdout io.Writer) int {
	store, err := archive.OpenStorage(ctx, cfg.Archive.Storage)
	if err != nil {
		logger.Printf("Failed to open archive storage: %v", err)
		return 1
	}

	archiver := archive.NewArchiver(store, cfg.Archive.Prefix, cfg.Archive.Compress, logger)
	var buf bytes.Buffer
	objects, err := archiver.Restore(ctx, runID, &buf)
	if err != nil {
		logger.Printf("Restore failed: %v", err)
		return 1
	}

	result, err := driver.RunReader(ctx, &buf)
	if err != nil {
		logger.Printf("Run failed: %v", err)
		return 1
	}
	if result.Failed() {
		logger.Printf("Completed with %d errors: %v", len(result.Errors), result.ErrorsByCode())
	}
	fmt.Fprintf(stdout, "Restored %d partitions from run %s.\n", len(objects), runID)
	return 0
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var fl flags
	flagSet := flag.NewFlagSet("splitter", flag.ContinueOnError)
	flagSet.SetOutput(stderr)

	flagSet.StringVar(&fl.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flagSet.StringVar(&fl.envFile, "env", ".env", "Path to an optional dotenv file")
	flagSet.StringVar(&fl.input, "input", "", "Input contacts file (default contacts.txt)")
	flagSet.StringVar(&fl.output, "output", "", "Output directory for partitions (default results)")
	flagSet.IntVar(&fl.workers, "workers", 0, "Number of consumer workers (default 4)")
	flagSet.StringVar(&fl.dedup, "dedup", "", "Dedup strategy: scan, bloom, memory (default scan)")
	flagSet.BoolVar(&fl.archive, "archive", false, "Upload partitions to object storage after the run")
	flagSet.StringVar(&fl.restore, "restore", "", "Merge the partitions archived by this run id into the output directory")
	flagSet.BoolVar(&fl.showVersion, "version", false, "Show version information")

	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "splitter - partition a contact list by surname initial\n\n")
		fmt.Fprintf(stderr, "Usage: splitter [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flagSet.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  SPLITTER_INPUT          Input contacts file\n")
		fmt.Fprintf(stderr, "  SPLITTER_OUTPUT_DIR     Output directory\n")
		fmt.Fprintf(stderr, "  SPLITTER_WORKERS        Number of consumer workers\n")
		fmt.Fprintf(stderr, "  SPLITTER_DEDUP          Dedup strategy\n")
		fmt.Fprintf(stderr, "  SPLITTER_STORAGE_TYPE   Archive storage type (local, s3)\n")
	}

	err := flagSet.Parse(args)
	return fl, err
}

// loadEnvFile loads a dotenv file if it exists. Variables already set in
// the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(fl flags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if fl.configFile != "" {
		cfg, err = config.LoadFromFile(fl.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if fl.input != "" {
		cfg.Input = fl.input
	}
	if fl.output != "" {
		cfg.OutputDir = fl.output
	}
	if fl.workers != 0 {
		cfg.Workers = fl.workers
	}
	if fl.dedup != "" {
		cfg.Dedup.Strategy = fl.dedup
	}
	if fl.archive {
		cfg.Archive.Enabled = true
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, splerrors.NewConfigError("invalid configuration", err)
	}
	return cfg, nil
}
