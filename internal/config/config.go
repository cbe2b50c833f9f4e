// Package config loads twostop settings from YAML, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ironsheep/twostop/internal/sink"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: TWOSTOP_OUTPUT__FORMAT=jpeg sets output.format.
const EnvPrefix = "TWOSTOP_"

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "twostop.yaml"

// OutputCfg configures the file sink results are written to.
type OutputCfg struct {
	Dir     string `koanf:"dir"`
	Format  string `koanf:"format"`
	Quality int    `koanf:"quality"`
	Suffix  string `koanf:"suffix"`
}

// LogCfg configures the zerolog logger.
type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// MetricsCfg configures the Prometheus endpoint.
type MetricsCfg struct {
	Port int `koanf:"port"` // 0 disables the endpoint
}

// Config is the complete tool configuration.
type Config struct {
	// ExposureShift is the linear gain providers apply to source samples.
	ExposureShift   float64    `koanf:"exposure_shift"`
	Workers         int        `koanf:"workers"`
	ContinueOnError bool       `koanf:"continue_on_error"`
	Output          OutputCfg  `koanf:"output"`
	Log             LogCfg     `koanf:"log"`
	Metrics         MetricsCfg `koanf:"metrics"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

// Load merges the YAML file at path (if it exists) with TWOSTOP_ environment
// variables and fills in defaults. An empty path means DefaultFile.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return Config{}, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps TWOSTOP_OUTPUT__FORMAT to output.format.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func applyDefaults(c *Config) {
	if c.ExposureShift == 0 {
		c.ExposureShift = 1.0
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Format == "" {
		c.Output.Format = sink.DefaultFormat
	}
	if c.Output.Quality == 0 {
		c.Output.Quality = sink.DefaultQuality
	}
	if c.Output.Suffix == "" {
		c.Output.Suffix = sink.DefaultSuffix
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.ExposureShift < 0 {
		return fmt.Errorf("exposure_shift must not be negative, got %v", c.ExposureShift)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be 1-100, got %d", c.Output.Quality)
	}
	if !sink.ValidFormat(c.Output.Format) {
		return fmt.Errorf("output.format %q not supported", c.Output.Format)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	return nil
}
