package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/doctor"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/wizard"
)

// errDependencies is returned when a required tool is missing.
var errDependencies = errors.New("missing required dependencies")

// newDoctorCmd creates the doctor subcommand
func newDoctorCmd(flags *globalFlags) *cobra.Command {
	var fix, copyFix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the tools the installer needs",
		Long: `Check that the privilege launcher, package tool and package database are present.

With --fix, the suggested fix for each missing tool is run. With --copy, the
first suggested fix is copied to the clipboard instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, flags, fix, copyFix)
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Run suggested fixes for missing tools")
	cmd.Flags().BoolVar(&copyFix, "copy", false, "Copy the first suggested fix to the clipboard")

	return cmd
}

func runDoctor(cmd *cobra.Command, flags *globalFlags, fix, copyFix bool) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	checker := doctor.NewChecker(cfg.Commands)
	checker.SetPackageDB(cfg.PackageDB)
	groups := checker.CheckAllAsync()
	printReport(out, groups, checker.GetSummary(groups))

	if !checker.HasIssues(groups) {
		return nil
	}

	fixer := doctor.NewFixer()
	for _, check := range doctor.Issues(groups) {
		if check.FixCommand == nil {
			continue
		}

		switch {
		case copyFix:
			if err := fixer.CopyToClipboard(check.FixCommand); err != nil {
				return err
			}
			fmt.Fprintf(out, "Copied fix for %s to the clipboard: %s\n", check.Name, check.FixCommand.Command)
			return errDependencies

		case fix:
			fmt.Fprintf(out, "Running: %s\n", check.FixCommand.Command)
			if err := fixer.RunFix(check.FixCommand); err != nil {
				return err
			}
		}
	}

	if fix {
		return nil
	}
	return errDependencies
}

// printReport writes the check results grouped by check group.
func printReport(w io.Writer, groups []doctor.CheckGroup, summary doctor.Summary) {
	for _, group := range groups {
		fmt.Fprintln(w, wizard.TitleStyle.Render(group.Name))
		for _, check := range group.Checks {
			fmt.Fprintf(w, "  %s %-14s %s\n", statusIcon(check.Status), check.Name, wizard.DimStyle.Render(check.Message))
			if check.FixCommand != nil && (check.Status == doctor.StatusMissing || check.Status == doctor.StatusError) {
				fmt.Fprintf(w, "      fix: %s\n", check.FixCommand.Command)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d checks: %d ok, %d missing, %d warnings, %d errors\n",
		summary.Total, summary.OK, summary.Missing, summary.Warnings, summary.Errors)
}

func statusIcon(status doctor.CheckStatus) string {
	switch status {
	case doctor.StatusOK:
		return wizard.SuccessStyle.Render("[ok]")
	case doctor.StatusWarning:
		return wizard.WarningStyle.Render("[!!]")
	default:
		return wizard.ErrorStyle.Render("[xx]")
	}
}
