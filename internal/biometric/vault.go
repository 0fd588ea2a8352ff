package biometric

import (
	"crypto/sha256"
	"fmt"
	"time"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/secrets"
)

// Vault holds the master password sealed under SHA-256(userHandle).
type Vault struct {
	Version   int    `json:"version"`
	IV        string `json:"iv"`
	CT        string `json:"ct"`
	UpdatedAt string `json:"updatedAt"`
}

func vaultSession(userHandle []byte) (*secrets.Session, error) {
	if len(userHandle) == 0 {
		return nil, ErrMissingUserHandle
	}
	key := sha256.Sum256(userHandle)
	return secrets.NewSession(key[:])
}

func sealVault(secret string, userHandle []byte, now time.Time) (Vault, error) {
	s, err := vaultSession(userHandle)
	if err != nil {
		return Vault{}, err
	}
	e, err := s.Seal([]byte(secret))
	if err != nil {
		return Vault{}, err
	}
	return Vault{
		Version:   1,
		IV:        b64url.EncodeToString(e.IV),
		CT:        b64url.EncodeToString(e.CT),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

func openVault(v Vault, userHandle []byte) (string, error) {
	s, err := vaultSession(userHandle)
	if err != nil {
		return "", err
	}
	iv, err := b64url.DecodeString(v.IV)
	if err != nil {
		return "", fmt.Errorf("%w: vault iv is malformed", kerrors.ErrDecryptionFailed)
	}
	ct, err := b64url.DecodeString(v.CT)
	if err != nil {
		return "", fmt.Errorf("%w: vault ciphertext is malformed", kerrors.ErrDecryptionFailed)
	}
	pt, err := s.Open(secrets.Envelope{IV: iv, CT: ct})
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
