package cmd

import (
	"fmt"

	"github.com/PolarWolf314/diario/internal/configs"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/spf13/cobra"
)

var configInitName string

func init() {
	configInitCmd.Flags().StringVarP(&configInitName, "device-name", "n", "", "name for this device in the audit log")
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config.toml for this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")

		if configInitName != "" && !utils.IsValidDeviceName(configInitName) {
			return fail(cmd, fmt.Errorf("invalid device name %q: use letters, digits, - and _", configInitName))
		}

		s, cfg, err := loadConfig()
		if err != nil {
			return fail(cmd, err)
		}
		if configInitName != "" && configInitName != cfg.Device.Name {
			if err := cfg.Set("device.name", configInitName); err != nil {
				return fail(cmd, err)
			}
			if err := configs.Save(s.ConfigFile(), cfg); err != nil {
				return fail(cmd, err)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.SuccessLine("Configuration ready at %s", ui.Path.Sprint(s.ConfigFile())))
		fmt.Fprintf(out, "  %-10s %s\n", "Device:", cfg.Device.Name)
		fmt.Fprintf(out, "  %-10s %s\n", "ID:", cfg.Device.ID)
		return nil
	},
}
