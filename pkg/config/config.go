// Package config provides configuration management for pkgwizard.
// Configuration is stored at ~/.config/pkgwizard/config.yaml and selects
// where packages come from, which tools install them and how long to wait.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/jaspreet-dot-casa/pkgwizard/payload"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/resource"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/syscmd"
)

// Version is the current config schema version.
const Version = "1.0"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the pkgwizard configuration.
type Config struct {
	Version      string          `yaml:"version"`
	ResourceDir  string          `yaml:"resource_dir,omitempty"` // Empty uses the embedded packages
	ResourceRoot string          `yaml:"resource_root"`          // Default: packages
	Commands     syscmd.Commands `yaml:"commands"`
	Timeouts     Timeouts        `yaml:"timeouts"`
	ScratchDir   string          `yaml:"scratch_dir,omitempty"` // Empty uses a temporary directory
	PackageDB    string          `yaml:"package_db,omitempty"`  // Checked by doctor; empty uses /var/lib/dpkg/status
	Log          LogConfig       `yaml:"log"`
}

// Timeouts bounds the waits around the installer process.
type Timeouts struct {
	KillWait    time.Duration `yaml:"kill_wait"`
	PreemptWait time.Duration `yaml:"preempt_wait"`
	Spawn       time.Duration `yaml:"spawn"`
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	Level string `yaml:"level"`          // debug, info, warn, error
	File  string `yaml:"file,omitempty"` // Empty uses the state directory
}

// New creates a Config with defaults.
func New() *Config {
	opts := install.DefaultOptions()
	return &Config{
		Version:      Version,
		ResourceRoot: payload.Root,
		Commands:     syscmd.Default(),
		Timeouts: Timeouts{
			KillWait:    opts.KillWaitTimeout,
			PreemptWait: opts.PreemptWaitTimeout,
			Spawn:       opts.SpawnTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config from the default location. A missing file yields
// the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields absent from the file keep
// their defaults; a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the config for values the installer cannot work with.
func (c *Config) Validate() error {
	if c.Version != "" && c.Version != Version {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalid, c.Version)
	}
	if c.ResourceRoot == "" {
		return fmt.Errorf("%w: resource_root is required", ErrInvalid)
	}
	if c.Commands.Tool == "" {
		return fmt.Errorf("%w: commands.tool is required", ErrInvalid)
	}
	if c.Timeouts.KillWait <= 0 || c.Timeouts.PreemptWait <= 0 || c.Timeouts.Spawn <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.ResourceDir != "" {
		info, err := os.Stat(c.ResourceDir)
		if err != nil {
			return fmt.Errorf("%w: resource_dir: %v", ErrInvalid, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: resource_dir is not a directory: %s", ErrInvalid, c.ResourceDir)
		}
	}

	return nil
}

// Provider returns the resource tree packages are read from: the configured
// directory, or the packages built into the binary.
func (c *Config) Provider() (resource.Provider, error) {
	if c.ResourceDir == "" {
		return resource.NewFSProvider(payload.Packages), nil
	}
	p, err := resource.NewDirProvider(c.ResourceDir)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// InstallOptions converts the config into driver options.
func (c *Config) InstallOptions(logger *log.Logger) install.Options {
	return install.Options{
		Root:               c.ResourceRoot,
		Commands:           c.Commands,
		ScratchDir:         c.ScratchDir,
		KillWaitTimeout:    c.Timeouts.KillWait,
		PreemptWaitTimeout: c.Timeouts.PreemptWait,
		SpawnTimeout:       c.Timeouts.Spawn,
		Logger:             logger,
	}
}

// LogLevel returns the configured level, falling back to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// LogPath returns the log file to use while the wizard owns the terminal.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	return DefaultLogPath()
}
