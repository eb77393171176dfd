// Package config loads fragdump settings from a YAML file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tetsuo/fmp4/internal/logging"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the fragdump configuration.
type Config struct {
	Format  string `yaml:"format"`
	Workers int    `yaml:"workers"`
	Samples bool   `yaml:"samples"`
	// MaxSamples bounds the samples one fragment may declare. A trun
	// without per-sample fields can claim billions in a few bytes.
	MaxSamples int               `yaml:"maxSamples"`
	Log        logging.LogConfig `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Format:     FormatText,
		Workers:    4,
		MaxSamples: 1 << 20,
		Log: logging.LogConfig{
			Level:      "info",
			Format:     "text",
			Rotation:   24 * time.Hour,
			MaxAgeDays: 7,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate normalizes the format and checks value ranges.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return errors.Errorf("unknown format %q", c.Format)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxSamples < 1 {
		return errors.Errorf("maxSamples must be positive, got %d", c.MaxSamples)
	}
	return nil
}
