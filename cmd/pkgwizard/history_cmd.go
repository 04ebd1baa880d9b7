package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/pkgwizard/pkg/history"
	"github.com/jaspreet-dot-casa/pkgwizard/pkg/wizard"
)

// newHistoryCmd creates the history subcommand
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent installation attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := historyStore()
			if err != nil {
				return err
			}

			records, err := store.Recent(limit)
			if err != nil {
				return err
			}

			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of attempts to show (0 for all)")

	return cmd
}

// printHistory writes one line per attempt, newest first.
func printHistory(w io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No installations recorded.")
		return
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %-10s %s (%s)",
			r.StartedAt.Local().Format(time.DateTime), outcomeLabel(r.Outcome), r.Package, r.Duration().Round(time.Second))
		if r.Message != "" {
			line += ": " + r.Message
		}
		fmt.Fprintln(w, line)
	}
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case history.OutcomeSucceeded:
		return wizard.SuccessStyle.Render(outcome)
	case history.OutcomeFailed, history.OutcomeError:
		return wizard.ErrorStyle.Render(outcome)
	default:
		return outcome
	}
}
