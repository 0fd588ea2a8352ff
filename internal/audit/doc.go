// Package audit records diario operations in a local audit trail.
//
// Unlocks, locks, entry changes, backups, restores and provider and
// biometric changes are each appended as one JSON object per line to:
//
//	<data>/audit.jsonl
//
// Each entry contains a random id, a UTC timestamp with microseconds, the
// device name and id from config.toml, the operation name and
// operation-specific details such as restore counts. Entries never contain
// journal content.
//
// Audit logging is best-effort. If writing fails the operation continues;
// no operation fails just because audit logging failed.
//
// ReadEntries parses the log for `diario log`, skipping malformed lines left
// by partial writes.
package audit
