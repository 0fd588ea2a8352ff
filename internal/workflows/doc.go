// Package workflows provides high-level orchestration for diario commands.
//
// A Journal wires every component for one data directory: the record store,
// the key manager, the token vault, the Dropbox client, the biometric gate,
// the backup reconciler and the audit trail. Each method implements one
// user-facing operation, independent of CLI concerns like flag parsing,
// spinners and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Opens a Journal and unlocks it
//   - Calls the appropriate workflow method
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Checking that the journal is unlocked
//   - Sealing and opening entries
//   - Calling Dropbox with a fresh access token
//   - Recording audit trail entries
//
// # Available Workflows
//
//   - SetPassword, Unlock, UnlockBiometric, Lock
//   - AddEntry, ListEntries, GetEntry, DeleteEntry
//   - ExportBackup, UploadBackup
//   - ListRemoteBackups, DownloadBackup, PrepareRestore, ApplyRestore
//   - ConnectDropbox, CompleteDropbox, DropboxStatus, DisconnectDropbox
//   - EnableBiometric, DisableBiometric, BiometricStatus
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	err := j.Unlock(ctx, password)
//	if errors.Is(err, kerrors.ErrWrongPassword) {
//	    // Ask again
//	}
//
// # Context Usage
//
// Every method that may block on storage or the network accepts a
// context.Context as its first parameter.
package workflows
