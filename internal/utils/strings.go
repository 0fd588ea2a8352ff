package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Excerpt collapses whitespace in s and cuts it to at most n runes, marking
// a cut with an ellipsis.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

var deviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// IsValidDeviceName reports whether name can be used as-is for
// device.name: a letter or digit followed by letters, digits, hyphens or
// underscores.
func IsValidDeviceName(name string) bool {
	return deviceNamePattern.MatchString(name)
}
