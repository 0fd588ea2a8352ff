// Package errors holds the sentinel errors shared by the diario packages.
//
// Components return these values, usually wrapped with fmt.Errorf and %w,
// and the command layer matches them with errors.Is to choose what to tell
// the user. The message text of a sentinel is never parsed.
//
// The sentinels fall into four groups:
//
//   - keys and sessions: ErrWeakSecret, ErrNoSession, ErrWrongPassword, ErrDecryptionFailed
//   - the platform authenticator: ErrBiometricUnsupported, ErrBiometricNotEnrolled, ErrBiometricVerification
//   - the remote provider: ErrNotLinked, ErrAuthRevoked, ErrTransport, ErrStateMismatch
//   - backups and records: ErrMalformedBackup, ErrUndescribable, ErrCorruptEntry, ErrRecordNotFound
//
// A failed token refresh, for example, surfaces as
//
//	fmt.Errorf("refreshing access token: %w", errors.ErrAuthRevoked)
//
// and the CLI suggests running diario dropbox connect again.
package errors
