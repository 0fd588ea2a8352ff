package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"sync/atomic"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
)

// IVSize is the AES-GCM nonce length used for every envelope.
const IVSize = 12

// Cipher encrypts and decrypts strings to and from envelope JSON text.
// Both *Session and *KeyManager satisfy it.
type Cipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(envelope string) (string, error)
}

// Session holds one derived AES-256-GCM key. A session is immutable apart from
// its revocation flag: once revoked every operation on it fails with
// ErrNoSession, including operations that were already running.
type Session struct {
	aead    cipher.AEAD
	revoked atomic.Bool
}

var _ Cipher = (*Session)(nil)

// NewSession wraps a raw 32-byte key that was not derived from a password,
// such as the biometric vault key.
func NewSession(key []byte) (*Session, error) {
	return newSession(key)
}

func newSession(key []byte) (*Session, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d bytes", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Session{aead: aead}, nil
}

// Revoked reports whether the session has been revoked by a lock.
func (s *Session) Revoked() bool {
	return s == nil || s.revoked.Load()
}

func (s *Session) revoke() {
	if s != nil {
		s.revoked.Store(true)
	}
}

// Seal encrypts plaintext under a fresh random IV.
func (s *Session) Seal(plaintext []byte) (Envelope, error) {
	if s.Revoked() {
		return Envelope{}, kerrors.ErrNoSession
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("failed to draw iv: %w", err)
	}
	ct := s.aead.Seal(nil, iv, plaintext, nil)
	if s.Revoked() {
		return Envelope{}, kerrors.ErrNoSession
	}
	return Envelope{IV: iv, CT: ct}, nil
}

// Open decrypts an envelope. A failed tag check is ErrDecryptionFailed.
func (s *Session) Open(e Envelope) ([]byte, error) {
	if s.Revoked() {
		return nil, kerrors.ErrNoSession
	}
	if len(e.IV) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", kerrors.ErrDecryptionFailed, IVSize)
	}
	plaintext, err := s.aead.Open(nil, e.IV, e.CT, nil)
	if s.Revoked() {
		return nil, kerrors.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// EncryptString returns the envelope JSON text for plaintext.
func (s *Session) EncryptString(plaintext string) (string, error) {
	e, err := s.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

// DecryptString parses envelope JSON text and decrypts it.
func (s *Session) DecryptString(text string) (string, error) {
	if s.Revoked() {
		return "", kerrors.ErrNoSession
	}
	e, err := ParseEnvelope(text)
	if err != nil {
		return "", err
	}
	plaintext, err := s.Open(e)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
