// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExtension      = ".pnm"
	DefaultBlackLevel     = 0.65
	DefaultPageEmpty      = 0.02
	DefaultWorkers        = 4
	DefaultDoneDir        = "processed"
	DefaultFailedDir      = "processed_failed"
	DefaultLoadRetryDelay = time.Second
	DefaultMaxBarcodes    = 4
)

type Config struct {
	Extension string `yaml:"extension"`
	// BlackLevel is the luminance (0..1) below which a pixel counts as ink.
	BlackLevel float64 `yaml:"black_level"`
	// PageEmpty is the fill ratio at or below which a page counts as blank.
	PageEmpty      float64       `yaml:"page_empty"`
	Workers        int           `yaml:"workers"`
	DoneDir        string        `yaml:"done_dir"`
	FailedDir      string        `yaml:"failed_dir"`
	LoadRetryDelay time.Duration `yaml:"load_retry_delay"`
	MaxBarcodes    int           `yaml:"max_barcodes"`
}

func Default() *Config {
	return &Config{
		Extension:      DefaultExtension,
		BlackLevel:     DefaultBlackLevel,
		PageEmpty:      DefaultPageEmpty,
		Workers:        DefaultWorkers,
		DoneDir:        DefaultDoneDir,
		FailedDir:      DefaultFailedDir,
		LoadRetryDelay: DefaultLoadRetryDelay,
		MaxBarcodes:    DefaultMaxBarcodes,
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.Extension = NormalizeExtension(cfg.Extension)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// NormalizeExtension adds the leading dot to a bare extension like "pnm".
func NormalizeExtension(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

func (c *Config) Validate() error {
	if c.Extension == "" {
		return fmt.Errorf("extension must not be empty")
	}
	if c.BlackLevel <= 0 || c.BlackLevel > 1 {
		return fmt.Errorf("black_level must be in (0, 1], got %v", c.BlackLevel)
	}
	if c.PageEmpty < 0 || c.PageEmpty >= 1 {
		return fmt.Errorf("page_empty must be in [0, 1), got %v", c.PageEmpty)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.DoneDir == "" || c.FailedDir == "" {
		return fmt.Errorf("done_dir and failed_dir must not be empty")
	}
	if c.DoneDir == c.FailedDir {
		return fmt.Errorf("done_dir and failed_dir must differ")
	}
	if c.LoadRetryDelay < 0 {
		return fmt.Errorf("load_retry_delay must not be negative")
	}
	if c.MaxBarcodes < 2 {
		return fmt.Errorf("max_barcodes must be at least 2, got %d", c.MaxBarcodes)
	}
	return nil
}
