package config

import (
	"os"
	"path/filepath"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/history"
)

const (
	// AppDirName is the directory name used under the XDG config and state homes.
	AppDirName = "pkgwizard"
	// ConfigFileName is the name of the main config file.
	ConfigFileName = "config.yaml"
	// LogFileName is the name of the log file written while the wizard runs.
	LogFileName = "pkgwizard.log"
)

// ConfigDir returns the config directory path (~/.config/pkgwizard).
// Respects XDG_CONFIG_HOME if set.
func ConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// StateDir returns the state directory path (~/.local/state/pkgwizard).
// Respects XDG_STATE_HOME if set.
func StateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// DefaultLogPath returns the log file used when none is configured.
func DefaultLogPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogFileName), nil
}

// HistoryPath returns the install history file path.
func HistoryPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, history.FileName), nil
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, AppDirName), nil
}
