package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups in Dropbox, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		spinner, cleanup := startSpinner(cmd, "Listing backups...")
		files, err := j.ListRemoteBackups(cmd.Context())
		if err != nil {
			defer cleanup()
			return failed(cmd, spinner, err)
		}
		cleanup()

		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "No backups in Dropbox yet.")
			return nil
		}
		for _, f := range files {
			fmt.Fprintf(out, "%-16s  %8d  %s\n", formatDate(f.Modified()), f.Size, f.PathDisplay)
		}
		return nil
	},
}
