package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/config"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/history"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
)

// loadConfig reads the config selected by --config and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFrom(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.logLevel != "" {
		if _, err := log.ParseLevel(flags.logLevel); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.Log.Level = flags.logLevel
	}

	return cfg, nil
}

// newLogger creates the application logger writing to w.
func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           cfg.LogLevel(),
		Prefix:          "pkgwizard",
		ReportTimestamp: true,
	})
}

// newDriver builds an install driver from cfg and loads the catalog.
// A catalog that fails to load is logged and left empty.
func newDriver(cfg *config.Config, logger *log.Logger, handler install.Handler) (*install.Driver, error) {
	provider, err := cfg.Provider()
	if err != nil {
		return nil, err
	}

	d := install.New(provider, cfg.InstallOptions(logger), handler)
	if !d.LoadPackages() {
		logger.Warn("no packages available", "resource_dir", cfg.ResourceDir, "root", cfg.ResourceRoot)
	}

	return d, nil
}

// historyStore opens the install history in the state directory.
func historyStore() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get history path: %w", err)
	}
	return history.NewStore(path), nil
}

// withHistory adds history recording to handler. Installs still run when
// the history location cannot be resolved.
func withHistory(handler install.Handler, logger *log.Logger) install.Handler {
	store, err := historyStore()
	if err != nil {
		logger.Warn("install history disabled", "err", err)
		return handler
	}
	return install.MultiHandler(handler, history.NewTracker(store, logger).Handler())
}
