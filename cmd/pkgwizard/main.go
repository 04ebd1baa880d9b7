// Package main provides the pkgwizard CLI for installing bundled .deb packages.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set via -ldflags during build
var version = "dev"

func main() {
	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// newRootCmd creates the root command for pkgwizard
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pkgwizard",
		Short: "Bundled package installer",
		Long: `pkgwizard installs the .deb packages bundled with it.

Run without arguments to start the interactive wizard. It supports:
  - Choosing a package from the bundled catalog
  - Installing it through pkexec and dpkg with live output
  - Non-interactive installs for scripts (pkgwizard install)
  - Checking that the required system tools are present`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWizard(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default ~/.config/pkgwizard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newPackagesCmd(flags),
		newInstallCmd(flags),
		newDoctorCmd(flags),
		newConfigCmd(flags),
		newHistoryCmd(),
	)

	return rootCmd
}
