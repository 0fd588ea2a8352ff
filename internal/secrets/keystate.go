package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

const (
	// DefaultIterations is the PBKDF2 work factor for new key states.
	DefaultIterations = 150000
	// HashSHA256 is the only supported PBKDF2 hash.
	HashSHA256 = "SHA-256"
	// SaltSize is the per-installation salt length.
	SaltSize = 16
	// KeySize is the derived AES-256 key length.
	KeySize = 32
	// VerifierPlaintext is the sentinel sealed into every verifier.
	VerifierPlaintext = "verify"
)

// KeyState is the persisted, non-secret description of how the master key is
// derived, plus a verifier proving which password produced it.
type KeyState struct {
	Salt       string   `json:"salt"`
	Verifier   Envelope `json:"verifier"`
	Iterations int      `json:"iterations"`
	Hash       string   `json:"hash"`
}

// SaltBytes decodes the salt.
func (k KeyState) SaltBytes() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(k.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", kerrors.ErrInvalidKeyState, err)
	}
	return salt, nil
}

// Normalize fills legacy defaults and rejects states this package cannot
// derive keys for.
func (k KeyState) Normalize() (KeyState, error) {
	if k.Iterations == 0 {
		k.Iterations = DefaultIterations
	}
	if k.Hash == "" {
		k.Hash = HashSHA256
	}
	if k.Hash != HashSHA256 {
		return k, fmt.Errorf("%w: unsupported hash %q", kerrors.ErrInvalidKeyState, k.Hash)
	}
	if k.Iterations < 0 {
		return k, fmt.Errorf("%w: negative iterations", kerrors.ErrInvalidKeyState)
	}
	salt, err := k.SaltBytes()
	if err != nil {
		return k, err
	}
	if len(salt) == 0 {
		return k, fmt.Errorf("%w: empty salt", kerrors.ErrInvalidKeyState)
	}
	if len(k.Verifier.IV) == 0 || len(k.Verifier.CT) == 0 {
		return k, fmt.Errorf("%w: missing verifier", kerrors.ErrInvalidKeyState)
	}
	return k, nil
}

// Equal reports whether two states describe the same key derivation and
// verifier.
func (k KeyState) Equal(o KeyState) bool {
	return k.Salt == o.Salt && k.Iterations == o.Iterations && k.Hash == o.Hash && k.Verifier.Equal(o.Verifier)
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over password and salt.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

// NewSalt draws a fresh installation salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// sessionFor derives the key for password under state and checks it against
// the verifier. A wrong password is ErrDecryptionFailed.
func sessionFor(state KeyState, password string) (*Session, error) {
	state, err := state.Normalize()
	if err != nil {
		return nil, err
	}
	salt, _ := state.SaltBytes()
	session, err := newSession(DeriveKey(password, salt, state.Iterations))
	if err != nil {
		return nil, err
	}
	plaintext, err := session.Open(state.Verifier)
	if err != nil {
		return nil, err
	}
	if string(plaintext) != VerifierPlaintext {
		return nil, fmt.Errorf("%w: unexpected verifier", kerrors.ErrDecryptionFailed)
	}
	return session, nil
}
