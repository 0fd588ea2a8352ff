package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of content. Without color it falls back to the
// prefix and suffix decoration.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func newFormatter(attr color.Attribute, prefix, suffix string) Formatter {
	return Formatter{color: color.New(attr), prefix: prefix, suffix: suffix}
}

// Sprint formats the arguments like fmt.Sprint.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats like fmt.Sprintf.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends a newline unless s already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor honors NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code is a command to run: yellow, or `backticks`.
	Code = newFormatter(color.FgYellow, "`", "`")

	// Path is a file, directory or Dropbox path: yellow.
	Path = newFormatter(color.FgYellow, "", "")

	// Flag is a command line flag: yellow.
	Flag = newFormatter(color.FgYellow, "", "")

	Success = newFormatter(color.FgGreen, "", "")
	Error   = newFormatter(color.FgRed, "", "")
	Warning = newFormatter(color.FgYellow, "", "")

	// Info marks hints and directions: cyan.
	Info = newFormatter(color.FgCyan, "", "")

	// Highlight is a user value such as an entry title or device name:
	// cyan, or 'single quotes'.
	Highlight = newFormatter(color.FgCyan, "'", "'")

	// Muted is secondary text such as a locked entry's label: gray, or
	// (parentheses).
	Muted = newFormatter(color.FgHiBlack, "(", ")")
)

// Line prefixes shared by every command.
const (
	markSuccess = "✓"
	markError   = "✗"
	markWarning = "⚠"
	markHint    = "→"
)

// SuccessLine is a message marked as done.
func SuccessLine(format string, a ...interface{}) string {
	return Success.Sprint(markSuccess) + " " + fmt.Sprintf(format, a...)
}

// WarningLine is a message marked as needing attention.
func WarningLine(format string, a ...interface{}) string {
	return Warning.Sprint(markWarning) + " " + fmt.Sprintf(format, a...)
}

// HintLine is a suggestion for what to do next.
func HintLine(format string, a ...interface{}) string {
	return Info.Sprint(markHint) + " " + fmt.Sprintf(format, a...)
}
