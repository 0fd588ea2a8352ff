package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage diario configuration",
	Long: `Shows and changes config.toml.

Use these commands to:
  - Create the file with a device id and name (config init)
  - Show every setting (config show)
  - Change one setting (config set)

Examples:
  diario config init --device-name laptop
  diario config show --json
  diario config set security.idle_timeout 10m
  diario config set dropbox.app_key abc123`,
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}

// resetConfigCommandState resets the config commands' global state for testing.
func resetConfigCommandState() {
	configInitName = ""
	configShowJSON = false
}
