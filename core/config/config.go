// Package config loads mat settings from defaults, an optional YAML file, a
// .env file and MAT_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// Rasterizer engines.
const (
	EngineGM   = "gm"
	EngineFitz = "fitz"
)

// Config holds all configuration for mat.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Strip      StripConfig      `yaml:"strip"`
	Rasterizer RasterizerConfig `yaml:"rasterizer"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// StripConfig holds the defaults for RemoveAll.
type StripConfig struct {
	Backup      bool `yaml:"backup"`
	ShredPasses int  `yaml:"shred_passes"`
}

// RasterizerConfig configures the PDF rasterize fallback.
type RasterizerConfig struct {
	Engine  string        `yaml:"engine"`
	Binary  string        `yaml:"binary"`  // GraphicsMagick executable
	Density int           `yaml:"density"` // DPI
	Quality int           `yaml:"quality"` // JPEG quality, fitz only
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Strip: StripConfig{
			ShredPasses: core.DefaultShredPasses,
		},
		Rasterizer: RasterizerConfig{
			Engine:  EngineGM,
			Binary:  "gm",
			Density: 150,
			Quality: 90,
			Timeout: 2 * time.Minute,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MAT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("MAT_BACKUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MAT_BACKUP: %w", err)
		}
		cfg.Strip.Backup = b
	}
	if v := os.Getenv("MAT_SHRED_PASSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAT_SHRED_PASSES: %w", err)
		}
		cfg.Strip.ShredPasses = n
	}
	if v := os.Getenv("MAT_RASTERIZER"); v != "" {
		cfg.Rasterizer.Engine = strings.ToLower(v)
	}
	if v := os.Getenv("MAT_GM_PATH"); v != "" {
		cfg.Rasterizer.Binary = v
	}
	if v := os.Getenv("MAT_CONVERT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MAT_CONVERT_TIMEOUT: %w", err)
		}
		cfg.Rasterizer.Timeout = d
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q is not console or json", c.Log.Format)
	}
	if c.Strip.ShredPasses < 1 {
		return fmt.Errorf("strip.shred_passes must be at least 1")
	}
	switch c.Rasterizer.Engine {
	case EngineGM:
		if c.Rasterizer.Binary == "" {
			return fmt.Errorf("rasterizer.binary is required for the gm engine")
		}
	case EngineFitz:
	default:
		return fmt.Errorf("rasterizer.engine %q is not gm or fitz", c.Rasterizer.Engine)
	}
	if c.Rasterizer.Density < 0 {
		return fmt.Errorf("rasterizer.density must not be negative")
	}
	if c.Rasterizer.Quality < 1 || c.Rasterizer.Quality > 100 {
		return fmt.Errorf("rasterizer.quality must be between 1 and 100")
	}
	if c.Rasterizer.Timeout <= 0 {
		return fmt.Errorf("rasterizer.timeout must be positive")
	}
	return nil
}
