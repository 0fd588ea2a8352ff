package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/diario/internal/audit"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// Unlock methods recorded in the audit trail.
const (
	MethodPassword  = "password"
	MethodBiometric = "biometric"
)

// Initialized reports whether a password has been set.
func (j *Journal) Initialized() (bool, error) {
	return j.keys.HasKey()
}

// SetPassword derives the master key for a new journal and unlocks it.
//
// Returns ErrAlreadyInitialized if a password is already set.
// Returns ErrWeakSecret if the password is shorter than the configured minimum.
func (j *Journal) SetPassword(ctx context.Context, password string) error {
	has, err := j.keys.HasKey()
	if err != nil {
		return err
	}
	if has {
		return kerrors.ErrAlreadyInitialized
	}

	if err := j.keys.SetPassword(password); err != nil {
		return err
	}

	j.trail.Op(audit.OpSetPassword)
	return nil
}

// Unlock opens the journal with password.
//
// Returns ErrNotInitialized if no password has been set.
// Returns ErrWrongPassword if the password does not match.
func (j *Journal) Unlock(ctx context.Context, password string) error {
	has, err := j.keys.HasKey()
	if err != nil {
		return err
	}
	if !has {
		return kerrors.ErrNotInitialized
	}

	ok, err := j.keys.TryUnlock(password)
	if err != nil {
		return err
	}
	if !ok {
		j.trail.Log(audit.Entry{Operation: audit.OpUnlock, Method: MethodPassword, Error: "wrong password"})
		return kerrors.ErrWrongPassword
	}

	j.afterUnlock(ctx, MethodPassword)
	return nil
}

// UnlockBiometric opens the journal with the password sealed by the
// biometric gate. If the sealed password no longer opens the journal the
// enrollment is stale: it is removed and ErrBiometricNotEnrolled returned.
func (j *Journal) UnlockBiometric(ctx context.Context) error {
	password, err := j.gate.Unlock(ctx)
	if err != nil {
		j.trail.Log(audit.Entry{Operation: audit.OpUnlock, Method: MethodBiometric, Error: err.Error()})
		return err
	}

	ok, err := j.keys.TryUnlock(password)
	if err != nil {
		return err
	}
	if !ok {
		if disableErr := j.gate.Disable(); disableErr != nil {
			j.log.Warnf("Could not remove stale biometric enrollment: %v", disableErr)
		}
		return fmt.Errorf("%w: the stored password no longer matches, enable it again", kerrors.ErrBiometricNotEnrolled)
	}

	j.afterUnlock(ctx, MethodBiometric)
	return nil
}

// afterUnlock seals tokens obtained while locked. Token problems never fail
// the unlock itself.
func (j *Journal) afterUnlock(ctx context.Context, method string) {
	if err := j.tokens.OnSessionUnlocked(ctx); err != nil {
		j.log.Warnf("Could not restore Dropbox tokens after unlock: %v", err)
	}
	j.trail.Log(audit.Entry{Operation: audit.OpUnlock, Method: method})
}

// Lock discards the session. Locking a locked journal does nothing.
func (j *Journal) Lock() {
	j.keys.Lock()
}

// IsUnlocked reports whether a session is installed.
func (j *Journal) IsUnlocked() bool {
	return j.keys.IsUnlocked()
}

// Touch records user activity for the idle lock.
func (j *Journal) Touch() {
	j.keys.Touch()
}
