package cmd

import (
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
)

var exportOutput string

func init() {
	backupExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file or directory to write to; stdout when omitted")
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup file",
	Long: `Writes every entry and the key settings to a backup file. Entries stay
encrypted.

Examples:
  diario backup export -o ~/Backups/
  diario backup export > diario.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting backup export command")

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		res, err := j.ExportBackup(cmd.Context(), workflows.ExportOptions{OutputPath: exportOutput})
		if err != nil {
			return fail(cmd, err)
		}

		out := cmd.OutOrStdout()
		if res.Path == "" {
			_, err := out.Write(res.Data)
			return err
		}
		Logger.Debugf("Wrote %d bytes", len(res.Data))
		_, err = out.Write([]byte(ui.SuccessLine("Exported %d entries to %s\n", res.Count, ui.Path.Sprint(res.Path))))
		return err
	},
}
