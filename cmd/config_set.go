package cmd

import (
	"fmt"

	"github.com/PolarWolf314/diario/internal/configs"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/spf13/cobra"
)

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Changes one setting in config.toml. The file is only written if the new
value passes validation.

Keys:
  device.name, security.idle_timeout, security.idle_check_interval,
  security.min_password_length, webauthn.origin, webauthn.rp_id,
  webauthn.rp_name, webauthn.authenticator, dropbox.app_key,
  dropbox.redirect_uri, dropbox.folder`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return configs.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		Logger.Debugf("Setting %s=%q", key, value)

		s, cfg, err := loadConfig()
		if err != nil {
			return fail(cmd, err)
		}
		if err := cfg.Set(key, value); err != nil {
			return fail(cmd, err)
		}
		if err := configs.Save(s.ConfigFile(), cfg); err != nil {
			return fail(cmd, err)
		}

		got, _ := cfg.Get(key)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.SuccessLine("%s = %s", key, got))
		if key == "webauthn.authenticator" && got == configs.AuthenticatorSoftware {
			fmt.Fprintln(out, ui.WarningLine("The software authenticator stores its key next to the biometric vault."))
			fmt.Fprintln(out, ui.WarningLine("Anyone who can read %s can recover your journal password.", ui.Path.Sprint(s.StateDBPath)))
		}
		return nil
	},
}
