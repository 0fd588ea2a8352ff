package errors

import "errors"

// Key and session errors indicate problems deriving, holding or using the master key.
var (
	// ErrWeakSecret indicates the password is too short to be accepted.
	ErrWeakSecret = errors.New("password is too short")

	// ErrNoSession indicates the operation needs an unlocked journal.
	ErrNoSession = errors.New("journal is locked")

	// ErrDecryptionFailed indicates an authentication tag or verifier mismatch.
	// This covers both a wrong password and a corrupted envelope.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrPasswordMismatch indicates a foreign key state could not be adopted
	// because the supplied password does not open it.
	ErrPasswordMismatch = errors.New("password does not match the imported key state")

	// ErrInvalidKeyState indicates the stored or imported key state is malformed.
	ErrInvalidKeyState = errors.New("key state is invalid")

	// ErrStorageUnavailable indicates the durable storage could not be read or written.
	ErrStorageUnavailable = errors.New("storage is unavailable")

	// ErrWrongPassword indicates the password did not open the stored key state.
	ErrWrongPassword = errors.New("incorrect password")

	// ErrNotInitialized indicates no password has been set yet.
	ErrNotInitialized = errors.New("journal has no password yet")

	// ErrAlreadyInitialized indicates a password is already set.
	ErrAlreadyInitialized = errors.New("journal already has a password")
)

// Biometric errors indicate failures of the platform authenticator unlock path.
var (
	// ErrBiometricUnsupported indicates no user-verifying platform authenticator is available.
	ErrBiometricUnsupported = errors.New("biometric authentication is not supported on this device")

	// ErrBiometricNotEnrolled indicates no biometric credential and vault are stored.
	ErrBiometricNotEnrolled = errors.New("biometric unlock is not configured")

	// ErrBiometricBusy indicates an enrollment is already in progress.
	ErrBiometricBusy = errors.New("biometric enrollment already in progress")

	// ErrBiometricVerification indicates an assertion failed self-verification.
	// Specific checks wrap this error.
	ErrBiometricVerification = errors.New("biometric assertion verification failed")
)

// Provider errors indicate failures talking to the remote storage provider.
var (
	// ErrAuthRevoked indicates the provider rejected the access or refresh token.
	ErrAuthRevoked = errors.New("provider authorization revoked")

	// ErrTransport indicates a network or HTTP failure.
	ErrTransport = errors.New("provider request failed")

	// ErrNotLinked indicates no provider account is connected.
	ErrNotLinked = errors.New("provider is not connected")

	// ErrStateMismatch indicates the OAuth anti-forgery state did not match.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrMissingAppKey indicates the provider app key has not been configured.
	ErrMissingAppKey = errors.New("provider app key is not configured")
)

// Backup and journal errors indicate issues with records or backup files.
var (
	// ErrMalformedBackup indicates a backup file is unparseable or empty.
	ErrMalformedBackup = errors.New("backup file is malformed or empty")

	// ErrUndescribable indicates a merge or replace involves records that could
	// not be decrypted, so applying it could lose data silently.
	ErrUndescribable = errors.New("backup contains entries that cannot be decrypted")

	// ErrCorruptEntry indicates a record decrypted but its payload is not valid.
	ErrCorruptEntry = errors.New("journal entry is corrupted")

	// ErrRecordNotFound indicates no record exists with the given id.
	ErrRecordNotFound = errors.New("journal entry not found")
)
