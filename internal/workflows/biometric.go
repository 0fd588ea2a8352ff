package workflows

import (
	"context"
	"errors"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/biometric"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// BiometricStatus describes the biometric unlock setup.
type BiometricStatus struct {
	State      biometric.State
	Available  bool
	Credential *biometric.Credential
}

// BiometricStatus reports enrollment and authenticator availability.
func (j *Journal) BiometricStatus(ctx context.Context) BiometricStatus {
	st := BiometricStatus{
		State:     j.gate.State(),
		Available: j.gate.Available(ctx),
	}
	if st.State == biometric.Enrolled {
		if cred, err := j.gate.Credential(); err == nil {
			st.Credential = cred
		}
	}
	return st
}

// EnableBiometric checks password against the journal, then enrolls an
// authenticator that seals it. The installed session, if any, is kept.
//
// Returns ErrWrongPassword if the password does not open the journal.
// Returns ErrBiometricUnsupported if no authenticator is available.
func (j *Journal) EnableBiometric(ctx context.Context, password string) error {
	state, err := j.keys.ExportState()
	if err != nil {
		return err
	}
	if state == nil {
		return kerrors.ErrNotInitialized
	}
	if _, err := j.keys.CreateSession(*state, password); err != nil {
		if errors.Is(err, kerrors.ErrDecryptionFailed) {
			return kerrors.ErrWrongPassword
		}
		return err
	}

	if err := j.gate.Enable(ctx, password); err != nil {
		return err
	}
	j.trail.Op(audit.OpBiometricEnable)
	return nil
}

// DisableBiometric removes the enrollment.
func (j *Journal) DisableBiometric() error {
	if err := j.gate.Disable(); err != nil {
		return err
	}
	j.trail.Op(audit.OpBiometricOff)
	return nil
}
