package cmd

import (
	"fmt"

	"github.com/PolarWolf314/diario/internal/biometric"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

// BiometricCmd groups the biometric unlock commands.
var BiometricCmd = &cobra.Command{
	Use:   "biometric",
	Short: "Unlock with a platform authenticator",
	Long: `Enrolls a WebAuthn authenticator that keeps the journal password sealed.
Once enabled, pass --biometric to any command instead of typing the password.`,
}

func init() {
	BiometricCmd.AddCommand(biometricEnableCmd)
	BiometricCmd.AddCommand(biometricDisableCmd)
	BiometricCmd.AddCommand(biometricStatusCmd)
}

var biometricEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enroll an authenticator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting biometric enable command")

		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		password, err := readPassword("Journal password: ")
		if err != nil {
			return fail(cmd, err)
		}

		spinner, cleanup := startSpinner(cmd, "Waiting for the authenticator...")
		defer cleanup()

		if err := j.EnableBiometric(cmd.Context(), password); err != nil {
			return failed(cmd, spinner, err)
		}
		spinner.FinalMSG = ui.SuccessLine("Biometric unlock enabled") + "\n" +
			ui.HintLine("Use %s with any command", ui.Flag.Sprint("--biometric"))
		return nil
	},
}

var biometricDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the enrollment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		if err := j.DisableBiometric(); err != nil {
			return fail(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Biometric unlock disabled"))
		return nil
	},
}

var biometricStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the enrollment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		st := j.BiometricStatus(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %-14s %s\n", "State:", st.State)
		fmt.Fprintf(out, "  %-14s %t\n", "Available:", st.Available)
		if st.Credential != nil {
			fmt.Fprintf(out, "  %-14s %s\n", "Credential:", st.Credential.CredentialID)
			fmt.Fprintf(out, "  %-14s %s\n", "Enrolled:", st.Credential.CreatedAt)
		}
		if st.State == biometric.Unregistered && st.Available {
			fmt.Fprintln(out, ui.HintLine("Run %s to set it up", ui.Code.Sprint("diario biometric enable")))
		}
		return nil
	},
}
