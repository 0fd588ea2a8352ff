package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/PolarWolf314/diario/internal/tokens"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var (
	connectAppKey   string
	connectRedirect string
)

// DropboxCmd groups the Dropbox connection commands.
var DropboxCmd = &cobra.Command{
	Use:   "dropbox",
	Short: "Connect this journal to Dropbox",
	Long: `Connects a Dropbox app folder for backups. Tokens are stored encrypted
with the journal key; "status" works without unlocking.`,
}

func init() {
	dropboxConnectCmd.Flags().StringVar(&connectAppKey, "app-key", "", "Dropbox app key; defaults to dropbox.app_key")
	dropboxConnectCmd.Flags().StringVar(&connectRedirect, "redirect", "", "redirect URL from the browser, skipping the prompt")

	DropboxCmd.AddCommand(dropboxConnectCmd)
	DropboxCmd.AddCommand(dropboxStatusCmd)
	DropboxCmd.AddCommand(dropboxDisconnectCmd)
}

// resetDropboxCommandState resets the dropbox commands' global state for testing.
func resetDropboxCommandState() {
	connectAppKey = ""
	connectRedirect = ""
}

var dropboxConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authorize diario to use your Dropbox",
	Long: `Prints an authorization URL. Open it, allow access, then paste the URL the
browser was redirected to.

Examples:
  diario dropbox connect --app-key abc123
  diario dropbox connect --redirect "http://localhost:53682/callback?code=...&state=..."`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting dropbox connect command")

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		authURL, err := j.ConnectDropbox(connectAppKey)
		if err != nil {
			return fail(cmd, err)
		}

		out := cmd.OutOrStdout()
		redirect := connectRedirect
		if redirect == "" {
			fmt.Fprintln(out, "Open this URL and allow access:")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  "+ui.Path.Sprint(authURL))
			fmt.Fprintln(out)
			fmt.Fprint(out, "Paste the URL you were redirected to: ")
			line, err := bufio.NewReader(stdin).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return fail(cmd, fmt.Errorf("no redirect URL given"))
			}
			redirect = strings.TrimSpace(line)
		}

		spinner, cleanup := startSpinner(cmd, "Completing authorization...")
		defer cleanup()

		status, err := j.CompleteDropbox(cmd.Context(), redirect)
		if err != nil {
			return failed(cmd, spinner, err)
		}
		spinner.FinalMSG = ui.SuccessLine("Connected to Dropbox%s", accountSuffix(status))
		return nil
	},
}

var dropboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Dropbox connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		st := j.DropboxStatus()
		out := cmd.OutOrStdout()
		if st.Linked {
			fmt.Fprintln(out, ui.SuccessLine("Connected%s", accountSuffix(st)))
			if st.PendingUnlock {
				fmt.Fprintln(out, ui.HintLine("Tokens are waiting to be sealed at the next unlock"))
			}
		} else {
			fmt.Fprintln(out, ui.WarningLine("Not connected"))
		}
		if st.AppKey != "" {
			fmt.Fprintf(out, "  %-12s %s\n", "App key:", st.AppKey)
		}
		if !st.LastSync.IsZero() {
			fmt.Fprintf(out, "  %-12s %s\n", "Last sync:", formatDate(st.LastSync))
		}
		if st.LastAuthResult != "" {
			fmt.Fprintf(out, "  %-12s %s\n", "Last auth:", st.LastAuthResult)
			if err := j.AcknowledgeDropboxStatus(); err != nil {
				Logger.Debugf("Could not clear auth result: %v", err)
			}
		}
		return nil
	},
}

var dropboxDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the Dropbox tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		if err := j.DisconnectDropbox(); err != nil {
			return fail(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Disconnected from Dropbox"))
		return nil
	},
}

func accountSuffix(st tokens.Status) string {
	switch {
	case st.AccountName != "" && st.Email != "":
		return fmt.Sprintf(" as %s <%s>", st.AccountName, st.Email)
	case st.Email != "":
		return " as " + st.Email
	default:
		return ""
	}
}
