// Package config provides configuration for the splitter command.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/splitter/internal/partition"
	"github.com/arkilian/splitter/pkg/types"
)

// Config holds the configuration for a splitter run.
type Config struct {
	// Input is the record source file
	Input string `json:"input" yaml:"input"`

	// OutputDir holds one partition file per key
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Workers is the number of consumer goroutines
	Workers int `json:"workers" yaml:"workers"`

	// Partition configuration
	Partition PartitionConfig `json:"partition" yaml:"partition"`

	// Dedup configuration
	Dedup DedupConfig `json:"dedup" yaml:"dedup"`

	// Archive configuration
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// PartitionConfig holds partition naming configuration.
type PartitionConfig struct {
	// SentinelKey is the single character used for an empty surname
	SentinelKey string `json:"sentinel_key" yaml:"sentinel_key"`

	// Extension is the partition file suffix
	Extension string `json:"extension" yaml:"extension"`
}

// DedupConfig holds dedup index configuration.
type DedupConfig struct {
	// Strategy is one of scan, bloom, memory
	Strategy string `json:"strategy" yaml:"strategy"`

	// BloomExpectedItems sizes new bloom filters
	BloomExpectedItems int `json:"bloom_expected_items" yaml:"bloom_expected_items"`

	// BloomFPR is the bloom filter target false positive rate
	BloomFPR float64 `json:"bloom_fpr" yaml:"bloom_fpr"`
}

// ArchiveConfig controls uploading partitions after a run.
type ArchiveConfig struct {
	// Enabled turns archiving on
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Prefix is prepended to every object path
	Prefix string `json:"prefix" yaml:"prefix"`

	// Compress stores partitions snappy-compressed
	Compress bool `json:"compress" yaml:"compress"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration: contacts.txt split into
// results/ by four workers with full-rescan dedup.
func DefaultConfig() *Config {
	return &Config{
		Input:     "contacts.txt",
		OutputDir: "results",
		Workers:   4,
		Partition: PartitionConfig{
			SentinelKey: types.DefaultSentinelKey.String(),
			Extension:   partition.DefaultExtension,
		},
		Dedup: DedupConfig{
			Strategy:           string(partition.DedupScan),
			BloomExpectedItems: 4096,
			BloomFPR:           0.01,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Prefix:   "partitions",
			Compress: true,
			Storage: StorageConfig{
				Type: "local",
			},
		},
	}
}

// Resolve fills derived defaults.
func (c *Config) Resolve() {
	if c.Archive.Storage.Type == "" {
		c.Archive.Storage.Type = "local"
	}
	if c.Archive.Storage.Type == "local" && c.Archive.Storage.Path == "" {
		c.Archive.Storage.Path = filepath.Join(c.OutputDir, ".archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if utf8.RuneCountInString(c.Partition.SentinelKey) != 1 {
		return fmt.Errorf("partition.sentinel_key must be a single character, got %q", c.Partition.SentinelKey)
	}
	if _, err := partition.NewRouter(c.RouterConfig()); err != nil {
		return err
	}

	if _, err := partition.ParseDedupStrategy(c.Dedup.Strategy); err != nil {
		return err
	}
	if c.Dedup.BloomFPR <= 0 || c.Dedup.BloomFPR >= 1 {
		return fmt.Errorf("dedup.bloom_fpr must be between 0 and 1, got %g", c.Dedup.BloomFPR)
	}

	if c.Archive.Enabled {
		if c.Archive.Storage.Type != "local" && c.Archive.Storage.Type != "s3" {
			return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Archive.Storage.Type)
		}
		if c.Archive.Storage.Type == "s3" && c.Archive.Storage.S3.Bucket == "" {
			return fmt.Errorf("archive.storage.s3.bucket is required when storage type is s3")
		}
	}

	return nil
}

// RouterConfig converts the partition section for the router.
func (c *Config) RouterConfig() partition.RouterConfig {
	sentinel, _ := utf8.DecodeRuneInString(c.Partition.SentinelKey)
	return partition.RouterConfig{
		SentinelKey: types.Key(sentinel),
		Extension:   c.Partition.Extension,
	}
}

// SinkOptions converts the dedup section for the sink registry.
func (c *Config) SinkOptions() partition.SinkOptions {
	return partition.SinkOptions{
		Dedup:              partition.DedupStrategy(c.Dedup.Strategy),
		BloomExpectedItems: c.Dedup.BloomExpectedItems,
		BloomFPR:           c.Dedup.BloomFPR,
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SPLITTER_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SPLITTER_INPUT"); v != "" {
		cfg.Input = v
	}
	if v := os.Getenv("SPLITTER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("SPLITTER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}

	// Partition configuration
	if v := os.Getenv("SPLITTER_SENTINEL_KEY"); v != "" {
		cfg.Partition.SentinelKey = v
	}
	if v := os.Getenv("SPLITTER_EXTENSION"); v != "" {
		cfg.Partition.Extension = v
	}

	// Dedup configuration
	if v := os.Getenv("SPLITTER_DEDUP"); v != "" {
		cfg.Dedup.Strategy = v
	}
	if v := os.Getenv("SPLITTER_BLOOM_FPR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dedup.BloomFPR = f
		}
	}

	// Archive configuration
	if v := os.Getenv("SPLITTER_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SPLITTER_ARCHIVE_PREFIX"); v != "" {
		cfg.Archive.Prefix = v
	}
	if v := os.Getenv("SPLITTER_STORAGE_TYPE"); v != "" {
		cfg.Archive.Storage.Type = v
	}
	if v := os.Getenv("SPLITTER_STORAGE_PATH"); v != "" {
		cfg.Archive.Storage.Path = v
	}
	if v := os.Getenv("SPLITTER_S3_BUCKET"); v != "" {
		cfg.Archive.Storage.S3.Bucket = v
	}
	if v := os.Getenv("SPLITTER_S3_REGION"); v != "" {
		cfg.Archive.Storage.S3.Region = v
	}
	if v := os.Getenv("SPLITTER_S3_ENDPOINT"); v != "" {
		cfg.Archive.Storage.S3.Endpoint = v
	}
}
