package cmd

import (
	"fmt"
	"io"

	"github.com/PolarWolf314/diario/internal/backup"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// BackupCmd groups export, upload and restore.
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export, upload and restore backups",
	Long: `Backups are JSON files holding every entry, still encrypted, plus the key
settings needed to open them with the journal password.

They can be written to a file, uploaded to Dropbox and restored on any
device, by merging them into the journal or replacing it.`,
}

func init() {
	BackupCmd.AddCommand(backupExportCmd)
	BackupCmd.AddCommand(backupUploadCmd)
	BackupCmd.AddCommand(backupListCmd)
	BackupCmd.AddCommand(backupRestoreCmd)
}

// resetBackupCommandState resets the backup commands' global state for testing.
func resetBackupCommandState() {
	exportOutput = ""
	restoreFile = ""
	restoreRemote = false
	restorePath = ""
	restoreMode = modeValue(workflows.RestoreMerge)
	restoreAdopt = false
	restoreForeignPassword = ""
	restoreYes = false
	restoreDryRun = false
}

// modeValue adapts workflows.RestoreMode to a flag.
type modeValue workflows.RestoreMode

var _ pflag.Value = (*modeValue)(nil)

func (m *modeValue) String() string {
	return workflows.RestoreMode(*m).String()
}

func (m *modeValue) Set(s string) error {
	mode, err := workflows.ParseRestoreMode(s)
	if err != nil {
		return err
	}
	*m = modeValue(mode)
	return nil
}

func (m *modeValue) Type() string {
	return "mode"
}

func printDiff(w io.Writer, p *workflows.PreparedRestore, mode workflows.RestoreMode) {
	d := p.Diff
	fmt.Fprintf(w, "Backup from %s, %d entries\n", exportedAt(p.File), d.TotalBackup)
	switch mode {
	case workflows.RestoreReplace:
		fmt.Fprintf(w, "  %s the journal will be replaced by the backup\n", ui.Warning.Sprint("!"))
	default:
		fmt.Fprintf(w, "  %-10s %d\n", "new", len(d.NewEntries))
		fmt.Fprintf(w, "  %-10s %d\n", "conflicts", len(d.Conflicts))
		fmt.Fprintf(w, "  %-10s %d\n", "identical", d.IdenticalCount)
		for _, c := range d.Conflicts {
			fmt.Fprintf(w, "    #%d  %s  %s  %s\n", c.Local.Record.ID, c.Local.Title(), ui.Info.Sprint("←"), c.Backup.Title())
		}
	}
	if p.ForeignState != nil {
		fmt.Fprintf(w, "  %s the backup was encrypted with another password\n", ui.Info.Sprint("ℹ"))
	}
}

func exportedAt(f *backup.File) string {
	if f.ExportedAt == "" {
		return "an unknown date"
	}
	return f.ExportedAt
}
