package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/doctor"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/wizard"
)

// runWizard starts the interactive installer.
func runWizard(_ *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// The wizard owns the terminal, so diagnostics go to a file
	logPath, err := cfg.LogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := newLogger(logFile, cfg)

	// Once the wizard exits nobody reads events; stop sending before Close
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan install.Event, 100)
	driver, err := newDriver(cfg, logger, withHistory(install.ChannelHandlerContext(ctx, events), logger))
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Error("failed to clean up", "err", err)
		}
	}()
	defer cancel()

	checker := doctor.NewChecker(cfg.Commands)
	checker.SetPackageDB(cfg.PackageDB)
	var warnings []string
	for _, check := range doctor.Issues(checker.CheckAll()) {
		warnings = append(warnings, fmt.Sprintf("%s: %s", check.Name, check.Message))
	}

	outcome, err := wizard.Run(driver, events, wizard.Options{Warnings: warnings})
	if err != nil {
		return err
	}

	logger.Info("wizard closed", "outcome", outcome)
	return nil
}
