package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

var errPassphraseMismatch = errors.New("passphrases do not match")

// ReadPassphrase prompts on stderr and reads a passphrase from stdin
// without echo. Stdin must be a terminal.
func ReadPassphrase(prompt string) ([]byte, error) {
	if !IsTerminal() {
		return nil, fmt.Errorf("cannot read passphrase: stdin is not a terminal (hint: use --password-stdin)")
	}
	return readHidden(os.Stdin, prompt)
}

// ReadNewPassphrase asks for a passphrase twice.
func ReadNewPassphrase(prompt, confirmPrompt string) ([]byte, error) {
	first, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, err
	}
	second, err := ReadPassphrase(confirmPrompt)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, errPassphraseMismatch
	}
	return first, nil
}

// ReadPassphraseFromTTY reads a passphrase from the controlling terminal
// while stdin carries something else, such as a backup piped to
// diario backup restore -f -.
func ReadPassphraseFromTTY(prompt string) ([]byte, error) {
	path := ttyPath()
	tty, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for passphrase input: %w", path, err)
	}
	defer tty.Close()

	if !term.IsTerminal(int(tty.Fd())) {
		return nil, fmt.Errorf("%s is not a terminal", path)
	}
	return readHidden(tty, prompt)
}

func readHidden(f *os.File, prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

func ttyPath() string {
	if runtime.GOOS == "windows" {
		return "CON"
	}
	return "/dev/tty"
}

// IsTerminal reports whether stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ClearScreen wipes the terminal the interactive shell runs in. It writes
// to the TTY directly, so redirected stdout is left alone.
func ClearScreen() error {
	path := ttyPath()
	tty, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s for writing: %w", path, err)
	}
	defer tty.Close()

	if _, err := tty.WriteString("\033[2J\033[H"); err != nil {
		return fmt.Errorf("failed to clear the screen: %w", err)
	}
	return nil
}
