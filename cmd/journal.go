package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/PolarWolf314/diario/internal/journal"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/spf13/cobra"
)

// JournalCmd groups the entry commands.
var JournalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Write and read journal entries",
	Long: `Adds, lists, shows and deletes encrypted journal entries.

Every command except "list --locked" needs the journal password, or
--biometric when an authenticator is enrolled.`,
}

func init() {
	JournalCmd.AddCommand(journalAddCmd)
	JournalCmd.AddCommand(journalListCmd)
	JournalCmd.AddCommand(journalShowCmd)
	JournalCmd.AddCommand(journalDeleteCmd)
}

// resetJournalCommandState resets the journal commands' global state for testing.
func resetJournalCommandState() {
	addTitle = ""
	addContent = ""
	addPhoto = ""
	listLocked = false
	listLimit = 0
	deleteYes = false
}

const dateLayout = "2006-01-02 15:04"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.Local().Format(dateLayout)
}

func printEntryLine(w io.Writer, e journal.Described) {
	title := e.Title()
	if e.OK() {
		title = ui.Success.Sprint(title)
	} else {
		title = ui.Warning.Sprint(title)
	}
	fmt.Fprintf(w, "%5d  %-16s  %s\n", e.Record.ID, formatDate(e.CreatedAt()), title)
	if e.OK() && e.Payload.Content != "" {
		fmt.Fprintf(w, "       %s\n", utils.Excerpt(e.Payload.Content, 72))
	}
}
