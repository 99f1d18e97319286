package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the run configuration, merged from defaults, an optional YAML
// file, and command-line flags. Flags win over file values.
type Config struct {
	// MaxChapters caps the number of chapters per book. Zero selects the
	// library default of 10000.
	MaxChapters int `yaml:"max_chapters"`

	// MaxEntryBytes caps the decompressed size of a single archive entry.
	// Zero selects the library default of 256 MB.
	MaxEntryBytes int64 `yaml:"max_entry_bytes"`

	// OutDir collects output files in one directory instead of placing
	// each next to its input.
	OutDir string `yaml:"out_dir"`

	// Zip packages all outputs into a single zip archive at this path.
	Zip string `yaml:"zip"`

	// Jobs is the number of books converted in parallel.
	Jobs int `yaml:"jobs"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML configuration file. Defaults are not applied
// here so that flag overrides can still distinguish unset values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Jobs <= 0 {
		c.Jobs = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
