// Package config holds tracing settings and loads them from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidMode is returned for an unrecognized tracing mode.
var ErrInvalidMode = errors.New("invalid tracing mode")

// Mode selects how inputs are represented while tracing.
type Mode string

// Tracing modes.
const (
	// Real traces over the given tensors and computes real results.
	Real Mode = "real"
	// Fake replaces inputs with metadata-only tensors.
	Fake Mode = "fake"
	// Symbolic additionally gives every input dimension a shape symbol.
	Symbolic Mode = "symbolic"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Real, Fake, Symbolic:
		return m, nil
	default:
		return "", errors.Wrapf(ErrInvalidMode, "%q (want real, fake or symbolic)", s)
	}
}

// Config holds tracing settings.
type Config struct {
	// Mode is the default tracing mode.
	Mode Mode `yaml:"mode"`
	// ConstantNumelLimit bounds the element count of values whose constant
	// value is propagated through the trace.
	ConstantNumelLimit int `yaml:"constant_numel_limit"`
	// Decompositions names operators rewritten by the core decomposition
	// table, e.g. ["addmm"].
	Decompositions []string `yaml:"decompositions"`
	// Verbosity is the klog verbosity used by the CLI.
	Verbosity int `yaml:"verbosity"`
	// Metrics enables prometheus metrics collection.
	Metrics bool `yaml:"metrics"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Mode:               Real,
		ConstantNumelLimit: 1,
		Metrics:            true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.ConstantNumelLimit < 0 {
		return errors.Errorf("constant_numel_limit must be >= 0, got %d", c.ConstantNumelLimit)
	}
	if c.Verbosity < 0 {
		return errors.Errorf("verbosity must be >= 0, got %d", c.Verbosity)
	}
	return nil
}

// Parse reads a YAML document on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return Parse(data)
}
