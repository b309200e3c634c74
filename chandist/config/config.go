// Package config loads the shared configuration of the channel planning
// tools from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/alan-christopher/qkdchan/chandist"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`

	// Nodes is the size of the network when no settings file names one.
	Nodes int `yaml:"nodes"`

	MaxAttempts int   `yaml:"max_attempts"`
	Seed        int64 `yaml:"seed"`

	Files  FilesConfig  `yaml:"files"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// CatalogConfig bounds the channel numbers, inclusive.
type CatalogConfig struct {
	First int `yaml:"first"`
	Last  int `yaml:"last"`
}

// FilesConfig names the files shared between the editor and the generator.
type FilesConfig struct {
	Settings     string `yaml:"settings"`
	Combinations string `yaml:"combinations"`
	Matrix       string `yaml:"matrix"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty logs to stderr
}

type OutputConfig struct {
	Format string `yaml:"format"` // table, csv, json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			First: chandist.DefaultFirstChannel,
			Last:  chandist.DefaultLastChannel,
		},
		Nodes:       4,
		MaxAttempts: chandist.DefaultMaxAttempts,
		Seed:        44,
		Files: FilesConfig{
			Settings:     "settings.txt",
			Combinations: "channels.txt",
			Matrix:       "freq_cor_latest.txt",
		},
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Format: "table"},
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first nonsensical setting in c.
func (c *Config) Validate() error {
	if c.Catalog.First > c.Catalog.Last {
		return fmt.Errorf("catalog.first (%d) exceeds catalog.last (%d)", c.Catalog.First, c.Catalog.Last)
	}
	if err := chandist.ValidateNodes(c.Nodes); err != nil {
		return fmt.Errorf("nodes: %w", err)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	}
	switch c.Output.Format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown output.format %q", c.Output.Format)
	}
	return nil
}

// ChannelCatalog builds the channel catalog described by c.
func (c *Config) ChannelCatalog() (chandist.Catalog, error) {
	return chandist.NewCatalog(c.Catalog.First, c.Catalog.Last)
}
