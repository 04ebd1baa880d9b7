package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/wizard"
)

// errCancelled is returned when the user declines the confirmation prompt.
var errCancelled = errors.New("installation cancelled")

// newInstallCmd creates the install subcommand
func newInstallCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package without the wizard",
		Long: `Install a package by its display name and stream the installer output.

The command exits non-zero unless the installer reports success.

Examples:
  pkgwizard install "Hello Wizard"
  pkgwizard install "Hello Wizard" --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, flags, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// runInstall installs one package and waits for the installer to exit.
func runInstall(cmd *cobra.Command, flags *globalFlags, name string, yes bool) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	driver, err := newDriver(cfg, logger, withHistory(printEvents(out), logger))
	if err != nil {
		return err
	}
	defer driver.Close()

	if entry := driver.Package(name); entry != nil && !yes {
		if !confirmInstall(name, len(entry.Archives)) {
			fmt.Fprintln(out, wizard.DimStyle.Render("Installation cancelled."))
			return errCancelled
		}
	}

	driver.InstallPackage(name)
	driver.Wait()

	s := driver.Session()
	if s == nil {
		return fmt.Errorf("package not found: %s", name)
	}
	if s.State() != install.StateSucceeded {
		return fmt.Errorf("installation of %s %s", name, s.State())
	}

	return nil
}

// printEvents renders installer events as plain lines.
func printEvents(w io.Writer) install.Handler {
	return func(e install.Event) {
		switch e.Type {
		case install.EventStarted:
			fmt.Fprintln(w, wizard.TitleStyle.Render("Beginning installation..."))
		case install.EventProgress:
			fmt.Fprintln(w, e.Message)
		case install.EventError:
			fmt.Fprintln(w, wizard.ErrorStyle.Render("Error: "+e.Message))
		case install.EventFinished:
			if e.Success {
				fmt.Fprintln(w, wizard.SuccessStyle.Render("Installation complete!"))
			} else {
				fmt.Fprintln(w, wizard.ErrorStyle.Render("Installation failed"))
			}
		}
	}
}

// confirmInstall asks before running the privileged installer.
func confirmInstall(name string, archives int) bool {
	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Install %s?", name)).
				Description(fmt.Sprintf("%d archive(s) will be passed to the package manager.", archives)).
				Affirmative("Yes, install!").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(wizard.Theme())

	if err := form.Run(); err != nil {
		return false
	}

	return confirm
}
