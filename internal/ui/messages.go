package ui

import (
	"errors"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

type failure struct {
	err  error
	msg  string
	hint func() string
}

// Hints are built on demand so they follow the current color setting.
var failures = []failure{
	{kerrors.ErrNoSession, "The journal is locked", func() string { return "Unlock it with your password, or " + Flag.Sprint("--biometric") + " if enrolled" }},
	{kerrors.ErrWeakSecret, "That password is too short", func() string { return "Choose a longer one, see " + Code.Sprint("diario config show") }},
	{kerrors.ErrWrongPassword, "Incorrect password", nil},
	{kerrors.ErrNotInitialized, "This journal has no password yet", func() string { return "Run " + Code.Sprint("diario init") }},
	{kerrors.ErrAlreadyInitialized, "This journal already has a password", nil},
	{kerrors.ErrPasswordMismatch, "The password does not match the backup's key", func() string { return "Enter the password used on the device that made the backup" }},
	{kerrors.ErrInvalidKeyState, "The stored key settings are invalid", nil},
	{kerrors.ErrStorageUnavailable, "Local storage could not be read or written", func() string { return "Check permissions on the data directory" }},
	{kerrors.ErrBiometricUnsupported, "No biometric authenticator is available", func() string { return "Set " + Code.Sprint("webauthn.authenticator") + " in config.toml" }},
	{kerrors.ErrBiometricNotEnrolled, "Biometric unlock is not set up", func() string { return "Run " + Code.Sprint("diario biometric enable") }},
	{kerrors.ErrBiometricBusy, "A biometric enrollment is already running", nil},
	{kerrors.ErrBiometricVerification, "The biometric check failed", func() string { return "Unlock with your password instead" }},
	{kerrors.ErrAuthRevoked, "Dropbox access was revoked", func() string { return "Run " + Code.Sprint("diario dropbox connect") + " again" }},
	{kerrors.ErrTransport, "Could not reach Dropbox", func() string { return "Check your connection and try again" }},
	{kerrors.ErrNotLinked, "Dropbox is not connected", func() string { return "Run " + Code.Sprint("diario dropbox connect") }},
	{kerrors.ErrStateMismatch, "The Dropbox redirect did not match this sign-in", func() string { return "Start again with " + Code.Sprint("diario dropbox connect") }},
	{kerrors.ErrMissingAppKey, "No Dropbox app key is configured", func() string { return "Run " + Code.Sprint("diario config set dropbox.app_key <key>") }},
	{kerrors.ErrMalformedBackup, "The backup file is malformed or empty", nil},
	{kerrors.ErrUndescribable, "The backup has entries this password cannot read", func() string { return "If it came from another device, pass " + Flag.Sprint("--foreign-password") }},
	{kerrors.ErrCorruptEntry, "The entry is corrupted", nil},
	{kerrors.ErrRecordNotFound, "No entry has that id", func() string { return "List entries with " + Code.Sprint("diario journal list") }},
}

// Failure returns a user-facing message and an optional hint for err. Errors
// that are not diario sentinels come back as their own text.
func Failure(err error) (msg, hint string) {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			if f.hint == nil {
				return f.msg, ""
			}
			return f.msg, f.hint()
		}
	}
	return err.Error(), ""
}

// FormatFailure renders err as a marked message with its hint on the next
// line.
func FormatFailure(err error) string {
	msg, hint := Failure(err)
	out := Error.Sprint(markError) + " " + msg
	if hint != "" {
		out += "\n" + HintLine("%s", hint)
	}
	return EnsureNewline(out)
}
