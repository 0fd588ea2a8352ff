// Package ui renders the text diario prints to the terminal.
//
// Each Formatter stands for one kind of content. On a color terminal it
// paints the text; with NO_COLOR set, or when fatih/color finds no TTY, it
// falls back to plain decoration so the kind is still visible:
//
//	ui.Code.Sprint("diario backup upload")  // `diario backup upload`
//	ui.Highlight.Sprint("Monday walk")      // 'Monday walk'
//	ui.Muted.Sprint("locked")               // (locked)
//	ui.Path.Sprint("/Diario")               // /Diario
//
// SuccessLine, WarningLine and HintLine prefix a whole line with the mark
// every command uses for that outcome.
//
// FormatFailure maps the sentinel errors from internal/errors to a short
// message and, where one exists, the command that gets the user unstuck.
package ui
