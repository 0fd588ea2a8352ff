package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logOperation string
	logSince     string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the last n entries")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation, such as unlock or restore")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries on or after date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logOperation = ""
	logSince = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log",
	Long: `Displays what was done to the journal on this device and when.

Examples:
  diario log                       # Full log
  diario log -n 10                 # Last 10 entries
  diario log --operation unlock    # Unlock attempts only
  diario log --since 2026-01-01    # Filter by date
  diario log --json                # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")

		var since time.Time
		if logSince != "" {
			t, err := time.ParseInLocation("2006-01-02", logSince, time.Local)
			if err != nil {
				return fail(cmd, fmt.Errorf("invalid --since date %q, expected YYYY-MM-DD", logSince))
			}
			since = t
		}

		s, err := settings()
		if err != nil {
			return fail(cmd, err)
		}
		entries, err := audit.ReadEntries(s.AuditLogPath)
		if err != nil {
			return fail(cmd, fmt.Errorf("failed to read audit log: %w", err))
		}
		Logger.Debugf("Parsed %d entries from audit log", len(entries))

		entries = audit.Filter(entries, logOperation, since)
		if logLimit > 0 && len(entries) > logLimit {
			entries = entries[len(entries)-logLimit:]
		}

		out := cmd.OutOrStdout()
		if logJSON {
			if entries == nil {
				entries = []audit.Entry{}
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal entries to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No audit log entries found.")
			return nil
		}
		for _, e := range entries {
			printAuditEntry(out, e)
		}
		return nil
	},
}

func printAuditEntry(w io.Writer, e audit.Entry) {
	when := e.Timestamp
	if t, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		when = t.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(w, "%-19s  %-16s  %-17s  %s\n", when, e.Device, e.Operation, auditDetails(e))
}

func auditDetails(e audit.Entry) string {
	var details string
	switch e.Operation {
	case audit.OpUnlock:
		details = e.Method
	case audit.OpAddEntry, audit.OpDeleteEntry:
		details = fmt.Sprintf("entry %d", e.EntryID)
	case audit.OpRestore:
		details = fmt.Sprintf("%s, %d added, %d replaced", e.Mode, e.Added, e.Replaced)
	case audit.OpExport, audit.OpUpload:
		details = fmt.Sprintf("%d entries", e.Count)
		if e.Path != "" {
			details += " to " + e.Path
		}
	case audit.OpAdopt:
		details = fmt.Sprintf("%d re-encrypted", e.Count)
	case audit.OpConnect:
		details = e.Account
	}
	if e.Error != "" {
		if details != "" {
			details += ": "
		}
		details += "failed (" + e.Error + ")"
	}
	return details
}
