package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	addTitle   string
	addContent string
	addPhoto   string
)

func init() {
	journalAddCmd.Flags().StringVarP(&addTitle, "title", "t", "", "entry title")
	journalAddCmd.Flags().StringVarP(&addContent, "content", "c", "", "entry text; read from stdin when omitted and stdin is piped")
	journalAddCmd.Flags().StringVar(&addPhoto, "photo", "", "attach an image file")
}

var journalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an encrypted entry",
	Long: `Encrypts a new entry and stores it on this device.

Examples:
  diario journal add --title "Monday" --content "Rained all day."
  diario journal add --title "Trip" --photo ./beach.jpg < notes.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting journal add command")

		content := addContent
		if content == "" && !passwordStdin && !utils.IsTerminal() {
			data, err := utils.ReadStdin()
			if err != nil {
				return fail(cmd, err)
			}
			content = strings.TrimRight(string(data), "\n")
		}
		if strings.TrimSpace(addTitle) == "" && strings.TrimSpace(content) == "" {
			return fail(cmd, fmt.Errorf("an entry needs a title or some content"))
		}

		j, err := openUnlocked(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		defer j.Close()

		res, err := j.AddEntry(cmd.Context(), workflows.AddEntryOptions{
			Title:     addTitle,
			Content:   content,
			PhotoPath: addPhoto,
		})
		if err != nil {
			return fail(cmd, err)
		}

		Logger.Debugf("Stored entry %d", res.ID)
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Added entry %d: %s", res.ID, res.Payload.DisplayTitle()))
		return nil
	},
}
