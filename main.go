package main

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/diario/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "diario",
	Short: "Diario - an encrypted journal with Dropbox backups.",
	Long: `Diario keeps a private journal on this device. Every entry is encrypted with
a key derived from your password; backups to a file or Dropbox stay
encrypted too.

Features:
  - Write, list and read encrypted entries
  - Export, upload and restore backups, merging or replacing
  - Unlock with a platform authenticator instead of the password
  - Audit log of everything done to the journal

Usage:
  diario <command> [flags]

Run 'diario help <command>' for more details on a specific command.
`,
	Run: func(c *cobra.Command, args []string) {
		figure.NewColorFigure("Diario", "small", "cyan", true).Print()
		fmt.Println()
		fmt.Println("Run 'diario init' to create your journal, or 'diario --help' to see available commands.")
	},
}

func init() {
	cmd.Setup(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
