package cmd

import (
	"fmt"

	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	listLocked bool
	listLimit  int
)

func init() {
	journalListCmd.Flags().BoolVar(&listLocked, "locked", false, "list without unlocking; titles stay hidden")
	journalListCmd.Flags().IntVarP(&listLimit, "number", "n", 0, "show only the newest n entries")
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting journal list command")

		var (
			j   *workflows.Journal
			err error
		)
		if listLocked {
			j, err = openJournal()
		} else {
			j, err = openUnlocked(cmd.Context())
		}
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		entries, err := j.ListEntries(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries yet.")
			return nil
		}
		shown := entries
		if listLimit > 0 && listLimit < len(shown) {
			shown = shown[:listLimit]
		}
		for _, e := range shown {
			printEntryLine(out, e)
		}
		if bad := unreadable(entries); bad > 0 && !listLocked {
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.HintLine("%d entries could not be decrypted with this password", bad))
		}
		return nil
	},
}

func unreadable(entries []journal.Described) int {
	n := 0
	for _, e := range entries {
		if !e.OK() {
			n++
		}
	}
	return n
}
