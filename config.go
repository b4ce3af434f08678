package flowline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/flowline/cache"
)

// Config formats accepted by ParseConfig.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Config groups everything a Generator needs. The zero value is not usable;
// start from DefaultConfig.
//
// A TOML config looks like:
//
//	workers = 4
//	cache_capacity = 8
//
//	[streamline]
//	line_spacing = 12
//	merge_lines = true
//
//	[pack]
//	speed = true
type Config struct {
	// Workers is the worker goroutine count. 0 means GOMAXPROCS.
	Workers int `json:"workers" toml:"workers" yaml:"workers"`

	// CacheCapacity is the number of unpinned fields kept resident.
	// 0 means cache.DefaultCapacity.
	CacheCapacity int `json:"cacheCapacity" toml:"cache_capacity" yaml:"cache_capacity"`

	// Streamline is used for requests that carry no settings of their own.
	Streamline Settings `json:"streamline" toml:"streamline" yaml:"streamline"`

	// Pack is used for requests that carry no pack options of their own.
	Pack PackOptions `json:"pack" toml:"pack" yaml:"pack"`
}

// DefaultConfig returns a usable configuration.
func DefaultConfig() Config {
	return Config{
		CacheCapacity: cache.DefaultCapacity,
		Streamline:    DefaultSettings(),
		Pack:          PackOptions{Seed: 1, Speed: true},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrConfig, c.Workers)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: negative cache capacity %d", ErrConfig, c.CacheCapacity)
	}
	if err := c.Streamline.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// LoadConfig reads a .toml, .yaml or .yml file. Keys missing from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	format, err := formatOf(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data, format)
}

// ParseConfig decodes data in the given format over DefaultConfig and
// validates the result. Unknown keys are rejected.
func ParseConfig(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(format) {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("%w: toml: %w", ErrConfig, err)
		}
	case FormatYAML, "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: yaml: %w", ErrConfig, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown format %q", ErrConfig, format)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unsupported config file %q", ErrConfig, filepath.Base(path))
}
