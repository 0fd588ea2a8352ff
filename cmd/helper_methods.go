package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/diario/internal/ui"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// startSpinner starts a spinner with message unless verbose or debug output
// is on, or output is not a terminal.
//
// spinner.FinalMSG does not need a trailing newline: cleanup adds one and
// prints it to the command's output after stopping the spinner.
func startSpinner(cmd *cobra.Command, message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Debugf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}
		if quiet {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Fprint(cmd.OutOrStdout(), finalMsg)
		}
	}
	return s, cleanup
}

// failed records err as the spinner's final message and returns it, so the
// command exits non-zero without cobra printing it a second time.
func failed(cmd *cobra.Command, s *spinner.Spinner, err error) error {
	Logger.Debugf("Command failed: %v", err)
	s.FinalMSG = ui.FormatFailure(err)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return err
}

// fail prints err without a spinner.
func fail(cmd *cobra.Command, err error) error {
	Logger.Debugf("Command failed: %v", err)
	fmt.Fprint(cmd.ErrOrStderr(), ui.FormatFailure(err))
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return err
}
