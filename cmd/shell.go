package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/PolarWolf314/diario/internal/utils"
	"github.com/PolarWolf314/diario/internal/workflows"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the journal in an interactive session",
	Long: `Keeps the journal open and unlocked between commands. After the configured
idle timeout the session locks itself and the screen is cleared.

Type "help" inside the shell for the commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting shell")

		j, err := openJournal()
		if err != nil {
			return fail(cmd, err)
		}

		out := cmd.OutOrStdout()
		sh := &shell{j: j, out: out, in: bufio.NewScanner(stdin)}
		defer func() {
			sh.quitting.Store(true)
			j.Close()
		}()
		if err := sh.unlock(cmd.Context()); err != nil {
			return fail(cmd, err)
		}

		j.Keys().OnLock(func() {
			if sh.quitting.Load() {
				return
			}
			if err := utils.ClearScreen(); err != nil {
				Logger.Debugf("Could not clear screen: %v", err)
			}
			fmt.Fprintln(out, ui.WarningLine("Journal locked. Type %s to continue.", ui.Code.Sprint("unlock")))
		})

		fmt.Fprintln(out)
		figure.NewColorFigure("Diario", "small", "cyan", true).Print()
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.HintLine("Type %s for commands", ui.Code.Sprint("help")))

		return sh.run(cmd.Context())
	},
}

type shell struct {
	j   *workflows.Journal
	out io.Writer
	in  *bufio.Scanner

	quitting atomic.Bool
}

var errQuit = errors.New("quit")

func (sh *shell) run(ctx context.Context) error {
	for {
		fmt.Fprint(sh.out, "diario> ")
		if !sh.in.Scan() {
			fmt.Fprintln(sh.out)
			return sh.in.Err()
		}
		line := strings.TrimSpace(sh.in.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		err := sh.exec(ctx, name, strings.TrimSpace(rest))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprint(sh.out, ui.FormatFailure(err))
		}
	}
}

// unlock takes the password from the shell's own input with
// --password-stdin, since stdin also carries the commands.
func (sh *shell) unlock(ctx context.Context) error {
	if !passwordStdin || useBiometric {
		return unlock(ctx, sh.j)
	}
	if !sh.in.Scan() {
		return fmt.Errorf("no password provided on stdin")
	}
	return sh.j.Unlock(ctx, strings.TrimRight(sh.in.Text(), "\r"))
}

func (sh *shell) exec(ctx context.Context, name, arg string) error {
	if name != "unlock" && name != "help" && name != "exit" && name != "quit" && name != "clear" {
		sh.j.Touch()
	}

	switch name {
	case "help":
		fmt.Fprintln(sh.out, `  list               list entries
  show <id>          print an entry
  add <title>        write an entry, end the text with a line holding "."
  delete <id>        delete an entry
  upload             upload a backup to Dropbox
  lock, unlock       lock or unlock the journal
  clear              clear the screen
  exit               leave the shell`)
	case "list":
		entries, err := sh.j.ListEntries(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(sh.out, "No entries yet.")
		}
		for _, e := range entries {
			printEntryLine(sh.out, e)
		}
	case "show":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("usage: show <id>")
		}
		e, err := sh.j.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if !e.OK() {
			return e.Err
		}
		fmt.Fprintln(sh.out, ui.Info.Sprint(e.Title()), "·", formatDate(e.CreatedAt()))
		fmt.Fprintln(sh.out, e.Payload.Content)
	case "add":
		if !sh.j.IsUnlocked() {
			return kerrors.ErrNoSession
		}
		var lines []string
		for sh.in.Scan() {
			if sh.in.Text() == "." {
				break
			}
			lines = append(lines, sh.in.Text())
		}
		res, err := sh.j.AddEntry(ctx, workflows.AddEntryOptions{Title: arg, Content: strings.Join(lines, "\n")})
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, ui.SuccessLine("Added entry %d", res.ID))
	case "delete":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("usage: delete <id>")
		}
		if err := sh.j.DeleteEntry(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, ui.SuccessLine("Deleted entry %d", id))
	case "upload":
		res, err := sh.j.UploadBackup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(sh.out, ui.SuccessLine("Uploaded %d entries to %s", res.Count, res.Metadata.PathDisplay))
	case "lock":
		sh.j.Lock()
	case "unlock":
		if sh.j.IsUnlocked() {
			return nil
		}
		return sh.unlock(ctx)
	case "clear":
		return utils.ClearScreen()
	case "exit", "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
	return nil
}
