package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PolarWolf314/diario/internal/configs"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	logger "github.com/PolarWolf314/diario/internal/logging"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	verbose       bool
	debug         bool
	home          string
	passwordStdin bool
	useBiometric  bool
	Logger        logger.Logger

	// stdin is where --password-stdin and confirmations are read from.
	stdin io.Reader = os.Stdin
)

// Setup registers the global flags and every command group on root.
func Setup(root *cobra.Command) {
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	root.PersistentFlags().StringVar(&home, "home", "", "keep config and data in this directory (overrides "+configs.HomeEnv+")")
	root.PersistentFlags().BoolVar(&passwordStdin, "password-stdin", false, "read the journal password from the first line of stdin")
	root.PersistentFlags().BoolVarP(&useBiometric, "biometric", "b", false, "unlock with the enrolled authenticator instead of a password")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
			Err:     cmd.ErrOrStderr(),
		}
		Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
	}

	root.AddCommand(initCmd)
	root.AddCommand(JournalCmd)
	root.AddCommand(BackupCmd)
	root.AddCommand(DropboxCmd)
	root.AddCommand(BiometricCmd)
	root.AddCommand(ConfigCmd)
	root.AddCommand(shellCmd)
	root.AddCommand(logCmd)
}

// settings returns the locations for this run.
func settings() (*configs.Settings, error) {
	if home == "" {
		return configs.DiarioSettings, nil
	}
	return configs.ResolveSettings(home)
}

// loadConfig loads config.toml, generating a device id on first use.
func loadConfig() (*configs.Settings, *configs.Config, error) {
	s, err := settings()
	if err != nil {
		return nil, nil, err
	}
	if err := s.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	Logger.Debugf("Loading config from %s", s.ConfigFile())
	cfg, err := configs.Ensure(s.ConfigFile(), utils.DefaultDeviceName())
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// openJournal opens the journal locked. The caller closes it.
func openJournal() (*workflows.Journal, error) {
	s, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return workflows.Open(workflows.Options{
		Settings: s,
		Config:   cfg,
		Logger:   Logger,
	})
}

// openUnlocked opens the journal and unlocks it with --biometric,
// --password-stdin or a prompt, in that order of preference.
func openUnlocked(ctx context.Context) (*workflows.Journal, error) {
	j, err := openJournal()
	if err != nil {
		return nil, err
	}
	if err := unlock(ctx, j); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func unlock(ctx context.Context, j *workflows.Journal) error {
	ok, err := j.Initialized()
	if err != nil {
		return err
	}
	if !ok {
		return kerrors.ErrNotInitialized
	}

	if useBiometric {
		Logger.Infof("Unlocking with the biometric authenticator")
		return j.UnlockBiometric(ctx)
	}
	password, err := readPassword("Journal password: ")
	if err != nil {
		return err
	}
	return j.Unlock(ctx, password)
}

// readPassword reads from stdin with --password-stdin, otherwise prompts on
// the terminal.
func readPassword(prompt string) (string, error) {
	if passwordStdin {
		return utils.ReadPasswordStdin(stdin)
	}
	pw, err := utils.ReadPassphrase(prompt)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// confirm asks a yes/no question on the terminal. Without a terminal it
// answers no.
func confirm(cmd *cobra.Command, question string) bool {
	if !utils.IsTerminal() {
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	var answer string
	if _, err := fmt.Fscanln(stdin, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	home = ""
	passwordStdin = false
	useBiometric = false
	stdin = os.Stdin
	resetJournalCommandState()
	resetBackupCommandState()
	resetDropboxCommandState()
	resetConfigCommandState()
	resetLogCommandState()
}

// SetStdin replaces the reader used for --password-stdin, for testing.
func SetStdin(r io.Reader) {
	stdin = r
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
