package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

func TestFailureMatchesWrappedSentinels(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantHint string
	}{
		{"Locked", kerrors.ErrNoSession, "The journal is locked", "--biometric"},
		{"WrappedRevoked", fmt.Errorf("upload: %w", kerrors.ErrAuthRevoked), "Dropbox access was revoked", "`diario dropbox connect`"},
		{"MissingKey", kerrors.ErrMissingAppKey, "No Dropbox app key is configured", "`diario config set dropbox.app_key <key>`"},
		{"NoHint", kerrors.ErrCorruptEntry, "The entry is corrupted", ""},
		{"Foreign", errors.New("disk on fire"), "disk on fire", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, hint := Failure(tt.err)
			if msg != tt.wantMsg {
				t.Errorf("Failure message = %q, want %q", msg, tt.wantMsg)
			}
			if tt.wantHint == "" && hint != "" {
				t.Errorf("Expected no hint, got %q", hint)
			}
			if !strings.Contains(hint, tt.wantHint) {
				t.Errorf("Failure hint = %q, want it to contain %q", hint, tt.wantHint)
			}
		})
	}
}

func TestFormatFailure(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	got := FormatFailure(kerrors.ErrNotLinked)
	want := "✗ Dropbox is not connected\n→ Run `diario dropbox connect`\n"
	if got != want {
		t.Errorf("FormatFailure = %q, want %q", got, want)
	}

	got = FormatFailure(errors.New("plain"))
	if got != "✗ plain\n" {
		t.Errorf("FormatFailure = %q, want %q", got, "✗ plain\n")
	}
}
