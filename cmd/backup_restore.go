package cmd

import (
	"errors"
	"fmt"
	"os"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	restoreFile            string
	restoreRemote          bool
	restorePath            string
	restoreMode            = modeValue(workflows.RestoreMerge)
	restoreAdopt           bool
	restoreForeignPassword string
	restoreYes             bool
	restoreDryRun          bool
)

func init() {
	backupRestoreCmd.Flags().StringVarP(&restoreFile, "file", "f", "", "backup file to restore; - reads stdin")
	backupRestoreCmd.Flags().BoolVar(&restoreRemote, "remote", false, "restore from Dropbox")
	backupRestoreCmd.Flags().StringVar(&restorePath, "path", "", "Dropbox path of the backup; the newest when omitted")
	backupRestoreCmd.Flags().Var(&restoreMode, "mode", "merge or replace")
	backupRestoreCmd.Flags().BoolVar(&restoreAdopt, "adopt", false, "switch this journal to the backup's password")
	backupRestoreCmd.Flags().StringVar(&restoreForeignPassword, "foreign-password", "", "password of a backup made with another password")
	backupRestoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "apply without asking")
	backupRestoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "show what would change and stop")
	backupRestoreCmd.MarkFlagsMutuallyExclusive("file", "remote")
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Merge a backup into the journal, or replace it",
	Long: `Restores a backup file or the newest Dropbox backup.

Merge adds the backup's new entries and lets the backup win where both
sides changed the same entry. Replace swaps the whole journal for the
backup.

A backup made with another password needs that password. With --adopt the
journal then switches to it, which also removes biometric unlock.

Examples:
  diario backup restore -f diario-backup-2026-05-01.json
  diario backup restore --remote --mode replace
  diario backup restore --remote --adopt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting backup restore command")
		Logger.Debugf("Flags: file=%q, remote=%t, mode=%s, adopt=%t", restoreFile, restoreRemote, restoreMode.String(), restoreAdopt)

		if restoreFile == "" && !restoreRemote {
			return fail(cmd, fmt.Errorf("pass --file or --remote"))
		}

		var data []byte
		if restoreFile != "" {
			var err error
			if restoreFile == "-" {
				data, err = utils.ReadStdin()
			} else {
				data, err = os.ReadFile(restoreFile)
			}
			if err != nil {
				return fail(cmd, err)
			}
		}

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		prepare := func(foreignPassword string) (*workflows.PreparedRestore, error) {
			if restoreRemote {
				return j.PrepareRemoteRestore(cmd.Context(), restorePath, foreignPassword)
			}
			return j.PrepareRestore(cmd.Context(), data, foreignPassword)
		}

		spinner, cleanup := startSpinner(cmd, "Reading backup...")
		p, err := prepare(restoreForeignPassword)
		if err != nil {
			defer cleanup()
			return failed(cmd, spinner, err)
		}
		cleanup()

		if p.NeedsPassword {
			pw, err := utils.ReadPassphraseFromTTY("Password of the backup: ")
			if err != nil {
				return fail(cmd, fmt.Errorf("%w: %v", kerrors.ErrUndescribable, err))
			}
			if p, err = prepare(string(pw)); err != nil {
				return fail(cmd, err)
			}
		}

		out := cmd.OutOrStdout()
		mode := workflows.RestoreMode(restoreMode)
		printDiff(out, p, mode)

		if mode == workflows.RestoreMerge && p.Diff.Empty() && !restoreAdopt {
			fmt.Fprintln(out, ui.SuccessLine("Journal already has everything in this backup"))
			return nil
		}
		if restoreDryRun {
			return nil
		}
		if !restoreYes && !confirm(cmd, fmt.Sprintf("Apply %s?", mode)) {
			fmt.Fprintln(out, "Nothing restored.", ui.HintLine("pass %s to apply without asking", ui.Flag.Sprint("--yes")))
			return nil
		}

		res, err := j.ApplyRestore(cmd.Context(), p, workflows.RestoreOptions{Mode: mode, Adopt: restoreAdopt})
		if errors.Is(err, kerrors.ErrPasswordMismatch) {
			Logger.Warnf("Adoption failed, the journal keeps its current password")
		}
		if err != nil {
			return fail(cmd, err)
		}

		fmt.Fprintln(out, ui.SuccessLine("Restored (%s): %d added, %d replaced", res.Mode, res.Added, res.Replaced))
		if res.Adopted {
			fmt.Fprintln(out, ui.SuccessLine("Journal now uses the backup's password (%d entries re-encrypted)", res.Migrated))
		}
		if res.BiometricDisabled {
			fmt.Fprintln(out, ui.HintLine("Biometric unlock was removed, enable it again with %s", ui.Code.Sprint("diario biometric enable")))
		}
		return nil
	},
}
