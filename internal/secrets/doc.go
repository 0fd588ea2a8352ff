// Package secrets provides the master-key session management for diario.
//
// # Key Derivation
//
// The master key is never stored. It is derived from the user's password with
// PBKDF2-HMAC-SHA256 (150000 iterations) over a 16-byte salt that is generated
// once per installation and reused by every later password change. The
// derived 32-byte key is used with AES-256-GCM.
//
// What is stored is a KeyState: the salt, the work factor and a verifier,
// which is the fixed plaintext "verify" sealed under the derived key. A
// password is correct exactly when the verifier opens with the key it
// derives.
//
// # Sessions
//
// A Session wraps one derived key. KeyManager installs at most one session at
// a time. Callers that need the key for more than one step take a snapshot
// with KeyManager.Session and use it directly:
//
//	s := km.Session()
//	if s == nil {
//	    return kerrors.ErrNoSession
//	}
//	ct, err := s.EncryptString(text)
//
// Lock revokes the installed session in place, so any snapshot taken earlier
// fails with ErrNoSession from then on, even mid-call.
//
// CreateSession derives a session for a foreign KeyState (a backup made under
// another password) without touching the installed one.
//
// # Envelopes
//
// Every encrypted string is stored as {"version":1,"iv":...,"ct":...} with
// base64 fields. The older form that spelled iv and ct as arrays of byte
// values still decodes.
//
// # Inactivity
//
// When built with an idle timeout, the manager starts an IdleWatcher on every
// unlock. Touch records activity; once the timeout passes without any, the
// watcher locks exactly once and stops.
package secrets
