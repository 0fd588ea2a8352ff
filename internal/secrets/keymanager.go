package secrets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/kv"
	logger "github.com/PolarWolf314/diario/internal/logging"
)

// SlotKeyState is the durable slot holding the KeyState.
const SlotKeyState = "key_state"

// DefaultMinPasswordLength is the shortest accepted password.
const DefaultMinPasswordLength = 6

// Options configures a KeyManager.
type Options struct {
	// IdleTimeout enables the inactivity lock when positive.
	IdleTimeout time.Duration

	// IdleCheckInterval is the inactivity polling period.
	IdleCheckInterval time.Duration

	// MinPasswordLength defaults to DefaultMinPasswordLength.
	MinPasswordLength int

	// Iterations is the PBKDF2 work factor for new states.
	Iterations int

	// Now overrides the clock for the idle watcher.
	Now func() time.Time

	Logger logger.Logger
}

// KeyManager owns the single installed session of the process and the
// persisted KeyState that proves which password derives it.
type KeyManager struct {
	store kv.Store
	opts  Options
	log   logger.Logger

	mu      sync.Mutex
	session *Session
	watcher *IdleWatcher
	hooks   []func()
}

var _ Cipher = (*KeyManager)(nil)

// NewKeyManager builds a locked manager over store.
func NewKeyManager(store kv.Store, opts Options) *KeyManager {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = DefaultMinPasswordLength
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.IdleCheckInterval <= 0 {
		opts.IdleCheckInterval = DefaultIdleCheckInterval
	}
	return &KeyManager{store: store, opts: opts, log: opts.Logger}
}

// loadState returns the stored state, or nil when none exists.
func (m *KeyManager) loadState() (*KeyState, error) {
	var state KeyState
	err := kv.GetJSON(m.store, SlotKeyState, &state)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	return &state, nil
}

// SetPassword derives a new master key, writes a fresh verifier and installs
// the session. The installation salt is reused when one exists.
func (m *KeyManager) SetPassword(password string) error {
	if len(password) < m.opts.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", kerrors.ErrWeakSecret, m.opts.MinPasswordLength)
	}

	prior, err := m.loadState()
	if err != nil {
		return err
	}

	var salt []byte
	if prior != nil {
		if salt, err = prior.SaltBytes(); err != nil {
			return err
		}
	}
	if len(salt) == 0 {
		m.log.Debugf("No installation salt found, generating one")
		if salt, err = NewSalt(); err != nil {
			return err
		}
	}

	session, err := newSession(DeriveKey(password, salt, m.opts.Iterations))
	if err != nil {
		return err
	}
	verifier, err := session.Seal([]byte(VerifierPlaintext))
	if err != nil {
		return err
	}

	state := KeyState{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Verifier:   verifier,
		Iterations: m.opts.Iterations,
		Hash:       HashSHA256,
	}
	if err := kv.SetJSON(m.store, SlotKeyState, state); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}

	m.install(session)
	m.log.Infof("Master key derived and verifier stored")
	return nil
}

// TryUnlock checks password against the stored verifier. A wrong password
// returns false with a nil error; only storage faults are errors.
func (m *KeyManager) TryUnlock(password string) (bool, error) {
	state, err := m.loadState()
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}

	session, err := sessionFor(*state, password)
	if errors.Is(err, kerrors.ErrDecryptionFailed) {
		m.log.Debugf("Verifier did not decrypt, password rejected")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.install(session)
	return true, nil
}

// install replaces the current session, revoking the previous one.
func (m *KeyManager) install(session *Session) {
	m.mu.Lock()
	if m.session != nil {
		m.session.revoke()
	}
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	m.session = session
	if m.opts.IdleTimeout > 0 {
		w := NewIdleWatcher(m.opts.IdleTimeout, m.opts.IdleCheckInterval, m.opts.Now, func() {
			m.log.Infof("Locking after %s of inactivity", m.opts.IdleTimeout)
			m.lockSession(session)
		})
		m.watcher = w
		w.Start()
	}
	m.mu.Unlock()
}

// Lock revokes and discards the session, stops the idle watcher and runs the
// lock hooks. Locking an already locked manager does nothing.
func (m *KeyManager) Lock() {
	m.mu.Lock()
	current := m.session
	m.mu.Unlock()
	m.lockSession(current)
}

// lockSession locks only if target is still the installed session, so a
// stale idle watcher can never lock a newer session.
func (m *KeyManager) lockSession(target *Session) {
	m.mu.Lock()
	if target == nil || m.session != target {
		m.mu.Unlock()
		return
	}
	m.session.revoke()
	m.session = nil
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	hooks := append([]func(){}, m.hooks...)
	m.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// OnLock registers a hook run after every lock.
func (m *KeyManager) OnLock(fn func()) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

// Touch records user activity for the idle watcher.
func (m *KeyManager) Touch() {
	m.mu.Lock()
	w := m.watcher
	m.mu.Unlock()
	if w != nil {
		w.Touch()
	}
}

// Session returns a snapshot of the installed session, or nil when locked.
func (m *KeyManager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// IsUnlocked reports whether a session is installed.
func (m *KeyManager) IsUnlocked() bool {
	return m.Session() != nil
}

// HasKey reports whether a KeyState has been stored.
func (m *KeyManager) HasKey() (bool, error) {
	state, err := m.loadState()
	if err != nil {
		return false, err
	}
	return state != nil, nil
}

// EncryptString encrypts under the installed session.
func (m *KeyManager) EncryptString(plaintext string) (string, error) {
	s := m.Session()
	if s == nil {
		return "", kerrors.ErrNoSession
	}
	return s.EncryptString(plaintext)
}

// DecryptString decrypts under the installed session.
func (m *KeyManager) DecryptString(text string) (string, error) {
	s := m.Session()
	if s == nil {
		return "", kerrors.ErrNoSession
	}
	return s.DecryptString(text)
}

// ExportState returns the stored KeyState, or nil when none exists.
func (m *KeyManager) ExportState() (*KeyState, error) {
	return m.loadState()
}

// ImportState validates and persists state, then locks. The caller must
// unlock again with the password belonging to state.
func (m *KeyManager) ImportState(state KeyState) error {
	state, err := state.Normalize()
	if err != nil {
		return err
	}
	if err := kv.SetJSON(m.store, SlotKeyState, state); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	m.Lock()
	return nil
}

// CreateSession derives an isolated session for a foreign KeyState. The
// installed session is left untouched. A wrong password is
// ErrDecryptionFailed.
func (m *KeyManager) CreateSession(state KeyState, password string) (*Session, error) {
	return sessionFor(state, password)
}
