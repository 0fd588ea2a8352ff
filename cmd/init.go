package cmd

import (
	"fmt"

	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set the journal password",
	Long: `Creates the journal on this device and sets the password that encrypts it.

The password cannot be recovered. Without it, neither the local journal nor
its backups can be read.

Examples:
  diario init
  echo "$PASSWORD" | diario init --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		password, err := readNewPassword()
		if err != nil {
			return fail(cmd, err)
		}

		spinner, cleanup := startSpinner(cmd, "Deriving the master key...")
		defer cleanup()

		if err := j.SetPassword(cmd.Context(), password); err != nil {
			return failed(cmd, spinner, err)
		}

		spinner.FinalMSG = ui.SuccessLine("Journal created at %s", ui.Path.Sprint(j.Settings().DataPath)) + "\n" +
			ui.HintLine("Add an entry with %s", ui.Code.Sprint("diario journal add"))
		return nil
	},
}

func readNewPassword() (string, error) {
	if passwordStdin {
		return utils.ReadPasswordStdin(stdin)
	}
	pw, err := utils.ReadNewPassphrase("New journal password: ", "Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
