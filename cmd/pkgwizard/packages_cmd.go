package main

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/catalog"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/install"
)

// newPackagesCmd creates the packages subcommand
func newPackagesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List available packages",
		Long:  `List every package in the catalog, grouped by the directory its manifest lives in.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPackages(cmd, flags)
		},
	}
}

// runPackages prints the catalog grouped by package group.
func runPackages(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	driver, err := newDriver(cfg, logger, install.NoOpHandler)
	if err != nil {
		return err
	}
	defer driver.Close()

	names := driver.AvailablePackages()
	if len(names) == 0 {
		return fmt.Errorf("no packages found")
	}

	entries := make([]*catalog.Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, driver.Package(name))
	}

	printPackages(cmd.OutOrStdout(), entries)
	return nil
}

// printPackages writes entries grouped in first-seen group order.
func printPackages(w io.Writer, entries []*catalog.Entry) {
	title := cases.Title(language.English)

	var groups []string
	byGroup := make(map[string][]*catalog.Entry)
	for _, e := range entries {
		g := entryGroup(e)
		if _, ok := byGroup[g]; !ok {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], e)
	}

	fmt.Fprintf(w, "Found %d packages:\n\n", len(entries))

	for _, g := range groups {
		header := "Other"
		if g != "" {
			header = title.String(strings.NewReplacer("-", " ", "_", " ").Replace(g))
		}
		fmt.Fprintf(w, "%s:\n", header)

		for _, e := range byGroup[g] {
			fmt.Fprintf(w, "  - %s\n", e.Name)
			for _, ref := range e.Archives {
				fmt.Fprintf(w, "      %s\n", catalog.Beautify(path.Base(ref)))
			}
		}
		fmt.Fprintln(w)
	}
}

// entryGroup returns the directory holding the entry's manifest, or "" for
// top-level manifests.
func entryGroup(e *catalog.Entry) string {
	dir := path.Dir(e.Manifest)
	if dir == "." {
		return ""
	}
	return path.Base(dir)
}
