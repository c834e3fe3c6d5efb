// Package config handles loam.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a loam.toml configuration.
type Config struct {
	Runtime RuntimeConfig `toml:"runtime"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the loam.toml file (set at load time).
	Dir string `toml:"-"`
}

// RuntimeConfig tunes interpreter limits.
type RuntimeConfig struct {
	// MaxFrameDepth bounds call nesting before stack-overflow errors.
	MaxFrameDepth int `toml:"max-frame-depth"`

	// RootCapacity sizes the root context's initial key allocation.
	RootCapacity int `toml:"root-capacity"`
}

// StoreConfig configures the snapshot archive.
type StoreConfig struct {
	// Path is the SQLite database location, relative to Dir unless
	// absolute. Empty disables the archive.
	Path string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Verbosity follows commonlog convention: 0 quiet, higher is noisier.
	Verbosity int `toml:"verbosity"`
}

// Defaults applied by Load when fields are unset.
const (
	DefaultMaxFrameDepth = 1024
	DefaultRootCapacity  = 64
)

// Load parses a loam.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "loam.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a loam.toml file, then
// loads and returns the configuration. Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "loam.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the built-in configuration used when no loam.toml
// exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Runtime.MaxFrameDepth == 0 {
		c.Runtime.MaxFrameDepth = DefaultMaxFrameDepth
	}
	if c.Runtime.RootCapacity == 0 {
		c.Runtime.RootCapacity = DefaultRootCapacity
	}
}

func (c *Config) validate() error {
	if c.Runtime.MaxFrameDepth < 0 {
		return fmt.Errorf("runtime.max-frame-depth must be positive")
	}
	if c.Runtime.RootCapacity < 0 {
		return fmt.Errorf("runtime.root-capacity must be positive")
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative")
	}
	return nil
}

// StorePath returns the absolute snapshot store path, or "" when the
// archive is disabled.
func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return ""
	}
	if filepath.IsAbs(c.Store.Path) || c.Dir == "" {
		return c.Store.Path
	}
	return filepath.Join(c.Dir, c.Store.Path)
}
