package cmd

import (
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var backupUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a backup to Dropbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting backup upload command")

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		spinner, cleanup := startSpinner(cmd, "Uploading backup...")
		defer cleanup()

		res, err := j.UploadBackup(cmd.Context())
		if err != nil {
			return failed(cmd, spinner, err)
		}
		spinner.FinalMSG = ui.SuccessLine("Uploaded %d entries to %s", res.Count, ui.Path.Sprint(res.Metadata.PathDisplay))
		return nil
	},
}
