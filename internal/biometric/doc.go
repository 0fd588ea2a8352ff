// Package biometric implements the quick-unlock gate: the master password is
// sealed in a vault keyed by a platform authenticator's user handle, and
// released only after a WebAuthn assertion passes local self-verification.
//
// There is no relying-party server. Every check a server would make (the
// credential id, the client data, the relying-party hash, the UP and UV
// flags, and the signature) is done here by VerifyAssertion.
//
// The authenticator itself sits behind the Authenticator interface.
// SoftwareAuthenticator is a key-store backed implementation used on headless
// hosts and in tests.
package biometric
