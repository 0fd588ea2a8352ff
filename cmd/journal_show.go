package cmd

import (
	"fmt"
	"strconv"

	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one entry",
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
		if !e.OK() {
			return fail(cmd, e.Err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Info.Sprint(e.Title()))
		fmt.Fprintln(out, formatDate(e.CreatedAt()))
		fmt.Fprintln(out)
		fmt.Fprintln(out, e.Payload.Content)
		if e.Payload.Photo != "" {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "[photo attached, %d bytes encoded]\n", len(e.Payload.Photo))
		}
		return nil
	},
}
