package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/diario/internal/configs"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := loadConfig()
		if err != nil {
			return fail(cmd, err)
		}

		values := map[string]string{"device.id": cfg.Device.ID}
		for _, key := range configs.Keys() {
			v, err := cfg.Get(key)
			if err != nil {
				return fail(cmd, err)
			}
			values[key] = v
		}

		out := cmd.OutOrStdout()
		if configShowJSON {
			data, err := json.MarshalIndent(values, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s (%s):\n\n", ui.Info.Sprint("Configuration"), s.ConfigFile())
		fmt.Fprintf(out, "  %-30s %s\n", "device.id", ui.Warning.Sprint(cfg.Device.ID))
		for _, key := range configs.Keys() {
			v := values[key]
			if v == "" {
				v = "(not set)"
			}
			fmt.Fprintf(out, "  %-30s %s\n", key, ui.Success.Sprint(v))
		}
		fmt.Fprintf(out, "\n  %-30s %s\n", "data", s.DataPath)
		return nil
	},
}
