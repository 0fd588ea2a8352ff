package cmd

import (
	"fmt"
	"strconv"

	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var deleteYes bool

func init() {
	journalDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
}

var journalDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fail(cmd, fmt.Errorf("invalid entry id %q", args[0]))
		}

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		e, err := j.GetEntry(cmd.Context(), id)
		if err != nil {
			return fail(cmd, err)
		}
		if !deleteYes && !confirm(cmd, fmt.Sprintf("Delete entry %d (%s)?", id, e.Title())) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted.")
			return nil
		}
		if err := j.DeleteEntry(cmd.Context(), id); err != nil {
			return fail(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Deleted entry %d", id))
		return nil
	},
}
